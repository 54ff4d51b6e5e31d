// SPDX-License-Identifier: Apache-2.0

package report

import (
	"regexp"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/textsim"
)

var (
	digitPattern = regexp.MustCompile(`\d`)
	unitPattern  = regexp.MustCompile(`(?i)\b(kg|m|mm|cm|km|kw|eur|usd|pln)\b|%`)
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// significance ranks how much attention a record deserves, from 0 to 10.
// Insertions and deletions weigh a fixed amount, modifications grow with the
// textual distance and with the figures they touch, and tables and images
// weigh more than prose.
func significance(rec diff.ChangeRecord) float64 {
	var s float64
	switch rec.Kind {
	case diff.Added, diff.Deleted:
		s += 2.5
	case diff.Modified:
		old, new := rec.Old.Text, rec.New.Text
		s += (1 - textsim.Similarity(old, new)) * 6
		combined := old + " " + new
		if digitPattern.MatchString(combined) {
			s += 0.8
		}
		if unitPattern.MatchString(combined) {
			s += 0.8
		}
		if yearPattern.MatchString(combined) {
			s += 0.6
		}
	}
	if t := rec.Type(); t == document.TableCell || t == document.Image {
		s += 2
	}
	return round2(clamp(s, 0, diff.MaxScore))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

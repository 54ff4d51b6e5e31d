// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/gemaraproj/docdiff/internal/textsim"
)

var legalRef = regexp.MustCompile(`(?i)§|\bart\.|\barticle\s+\d|\bsection\s+\d|\bpar\.|\bpkt\.|\bust\.`)

// change holds what the category rules look at for one modification.
type change struct {
	old, new string
	labels   []string
}

// categoryRule assigns a category when match reports true.
type categoryRule struct {
	category Category
	match    func(c change) bool
}

// categoryRules are evaluated in order; the first match wins.
var categoryRules = []categoryRule{
	{category: Substantive, match: func(c change) bool {
		return !slices.Equal(digitRuns(c.old), digitRuns(c.new))
	}},
	{category: Technical, match: func(c change) bool {
		return slices.Contains(c.labels, "legal_ref") || legalRef.MatchString(c.old+" "+c.new)
	}},
	{category: Editorial, match: func(c change) bool {
		return textsim.Similarity(c.old, c.new) > 0.9
	}},
	{category: Formal, match: func(c change) bool {
		return len(strings.Fields(c.old)) != len(strings.Fields(c.new))
	}},
}

// Categorize names the nature of a modification from its texts and the
// entity labels found in them.
func Categorize(old, new string, labels []string) Category {
	c := change{old: old, new: new, labels: labels}
	for _, rule := range categoryRules {
		if rule.match(c) {
			return rule.category
		}
	}
	return Substantive
}

func digitRuns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
}

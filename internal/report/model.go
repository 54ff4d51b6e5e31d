// SPDX-License-Identifier: Apache-2.0

// Package report aggregates a comparison result into the model consumed by
// the HTML and JSON renderers.
package report

import (
	"math"
	"sort"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/oracle"
	"github.com/gemaraproj/docdiff/internal/textsim"
)

// Counts tallies records per change kind.
type Counts struct {
	Total     int `json:"total"`
	Added     int `json:"added"`
	Deleted   int `json:"deleted"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

func (c *Counts) add(kind diff.ChangeKind) {
	c.Total++
	switch kind {
	case diff.Added:
		c.Added++
	case diff.Deleted:
		c.Deleted++
	case diff.Modified:
		c.Modified++
	case diff.Unchanged:
		c.Unchanged++
	}
}

// Changed is the number of records that are not unchanged.
func (c Counts) Changed() int {
	return c.Added + c.Deleted + c.Modified
}

// TypeCounts tallies the records of one block type.
type TypeCounts struct {
	Type document.UnitType
	Counts
}

// Entry is one change record flattened for presentation.
type Entry struct {
	Index    int
	Kind     diff.ChangeKind
	Type     document.UnitType
	OldText  *string
	NewText  *string
	Ref      string
	Score    *float64
	Entities []oracle.Entity
	Labels   []string
	Degraded bool
	Category diff.Category
	// Significance ranks the change for the table of contents, 0 to 10.
	Significance float64
	// Inline is the word-level diff of a modification.
	Inline []textsim.Op
	// Cluster is the ID of the cluster holding the entry, 0 when none.
	Cluster int
}

// Group lists the indices of the entries sharing a block type and kind.
type Group struct {
	Type    document.UnitType
	Kind    diff.ChangeKind
	Entries []int
}

// Model is the document-level view of one comparison.
type Model struct {
	OldSource string
	NewSource string
	Entries   []Entry
	Counts    Counts
	ByType    []TypeCounts
	// Degraded counts entries scored by the fallback heuristic.
	Degraded int
	// AverageModifiedScore is nil when nothing was modified.
	AverageModifiedScore *float64
	Groups               []Group
	Clusters             []Cluster
	// TOC lists changed entries by descending significance.
	TOC              []int
	DominantCategory diff.Category
	Labels           []string
	Summary          string
}

// Build aggregates res with the default options.
func Build(res *diff.Result) *Model {
	return BuildWithOptions(res, DefaultOptions())
}

// BuildWithOptions aggregates res. It makes no classification decisions and
// returns an equal model every time it is called with the same arguments.
func BuildWithOptions(res *diff.Result, opts Options) *Model {
	m := &Model{
		Entries:  []Entry{},
		ByType:   []TypeCounts{},
		Groups:   []Group{},
		Clusters: []Cluster{},
		TOC:      []int{},
		Labels:   []string{},
	}
	if res == nil {
		m.Summary = summarize(m)
		return m
	}
	m.OldSource, m.NewSource = res.OldSource, res.NewSource

	byType := map[document.UnitType]*Counts{}
	groups := map[document.UnitType]map[diff.ChangeKind][]int{}
	categories := map[diff.Category]int{}
	labels := map[string]struct{}{}
	var scoreSum float64

	for i, rec := range res.Records {
		e := entry(i, rec)
		m.Entries = append(m.Entries, e)

		m.Counts.add(rec.Kind)
		if byType[e.Type] == nil {
			byType[e.Type] = &Counts{}
			groups[e.Type] = map[diff.ChangeKind][]int{}
		}
		byType[e.Type].add(rec.Kind)
		groups[e.Type][rec.Kind] = append(groups[e.Type][rec.Kind], i)

		if rec.Degraded {
			m.Degraded++
		}
		if rec.Kind == diff.Modified && rec.Score != nil {
			scoreSum += *rec.Score
			categories[rec.Category]++
		}
		if rec.Kind != diff.Unchanged {
			m.TOC = append(m.TOC, i)
			for _, l := range e.Labels {
				labels[l] = struct{}{}
			}
		}
	}

	if m.Counts.Modified > 0 {
		avg := round2(scoreSum / float64(m.Counts.Modified))
		m.AverageModifiedScore = &avg
	}
	for _, t := range orderedTypes(byType) {
		m.ByType = append(m.ByType, TypeCounts{Type: t, Counts: *byType[t]})
		for _, k := range diff.ChangeKinds() {
			if idx := groups[t][k]; len(idx) > 0 {
				m.Groups = append(m.Groups, Group{Type: t, Kind: k, Entries: idx})
			}
		}
	}
	m.Clusters = cluster(m.Entries, opts.ClusterThreshold)
	sort.SliceStable(m.TOC, func(a, b int) bool {
		return m.Entries[m.TOC[a]].Significance > m.Entries[m.TOC[b]].Significance
	})
	m.DominantCategory = dominant(categories)
	for l := range labels {
		m.Labels = append(m.Labels, l)
	}
	sort.Strings(m.Labels)
	m.Summary = summarize(m)
	return m
}

func entry(i int, rec diff.ChangeRecord) Entry {
	e := Entry{
		Index:    i,
		Kind:     rec.Kind,
		Type:     rec.Type(),
		Score:    rec.Score,
		Entities: rec.Entities,
		Labels:   oracle.Labels(rec.Entities),
		Degraded: rec.Degraded,
		Category: rec.Category,
	}
	if e.Entities == nil {
		e.Entities = []oracle.Entity{}
	}
	if rec.Old != nil {
		text := rec.Old.Text
		e.OldText = &text
		e.Ref = rec.Old.Ref
	}
	if rec.New != nil {
		text := rec.New.Text
		e.NewText = &text
		if rec.New.Ref != "" {
			e.Ref = rec.New.Ref
		}
	}
	if rec.Kind == diff.Modified && e.Type != document.Image {
		e.Inline = textsim.InlineOps(*e.OldText, *e.NewText)
	}
	e.Significance = significance(rec)
	return e
}

// orderedTypes returns the known unit types first, in declaration order,
// followed by any others sorted by name.
func orderedTypes(seen map[document.UnitType]*Counts) []document.UnitType {
	var out []document.UnitType
	for _, t := range document.UnitTypes() {
		if _, ok := seen[t]; ok {
			out = append(out, t)
		}
	}
	var rest []document.UnitType
	for t := range seen {
		if !t.Valid() {
			rest = append(rest, t)
		}
	}
	sort.Slice(rest, func(a, b int) bool { return rest[a] < rest[b] })
	return append(out, rest...)
}

// dominant picks the most frequent category, breaking ties by name.
func dominant(counts map[diff.Category]int) diff.Category {
	var best diff.Category
	bestN := 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

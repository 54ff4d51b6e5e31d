// SPDX-License-Identifier: Apache-2.0

package diff_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document"
)

// seq builds a sequence from units, assigning IDs in order.
func seq(units ...document.Unit) *document.Sequence {
	s := &document.Sequence{Units: []document.Unit{}}
	for i, u := range units {
		u.ID = i
		s.Units = append(s.Units, u)
	}
	return s
}

func para(text string) document.Unit {
	return document.Unit{Type: document.Paragraph, Text: text}
}

func cell(text string) document.Unit {
	return document.Unit{Type: document.TableCell, Text: text}
}

func image(id string) document.Unit {
	return document.Unit{Type: document.Image, Text: "image:" + id}
}

func paras(texts ...string) *document.Sequence {
	units := make([]document.Unit, len(texts))
	for i, t := range texts {
		units[i] = para(t)
	}
	return seq(units...)
}

// ----------------------------------------------------------------------------
// Configuration
// ----------------------------------------------------------------------------

func TestAlignRejectsNilSequences(t *testing.T) {
	opts := diff.DefaultAlignOptions()

	_, err := diff.Align(nil, paras("a"), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, diff.ErrConfiguration)
	var cerr *diff.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "old", cerr.Field)

	_, err = diff.Align(paras("a"), nil, opts)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "new", cerr.Field)
}

func TestAlignRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		opts  diff.AlignOptions
		field string
	}{
		{name: "min match above one", opts: diff.AlignOptions{MinMatch: 1.5}, field: "alignment.min_match"},
		{name: "negative min match", opts: diff.AlignOptions{MinMatch: -0.1}, field: "alignment.min_match"},
		{name: "negative dp cells", opts: diff.AlignOptions{MinMatch: 0.5, MaxDPCells: -1}, field: "alignment.max_dp_cells"},
		{name: "dp table over the cap", opts: diff.AlignOptions{MinMatch: 0.5, MaxDPCells: diff.MaxDPCellsLimit + 1}, field: "alignment.max_dp_cells"},
		{name: "negative window", opts: diff.AlignOptions{MinMatch: 0.5, FuzzyWindow: -1}, field: "alignment.fuzzy_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := diff.Align(paras(), paras(), tt.opts)
			var cerr *diff.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

// ----------------------------------------------------------------------------
// Alignment shapes
// ----------------------------------------------------------------------------

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		old  *document.Sequence
		new  *document.Sequence
		want []diff.MatchPair
	}{
		{
			name: "both empty",
			old:  paras(),
			new:  paras(),
			want: []diff.MatchPair{},
		},
		{
			name: "empty old yields insertions",
			old:  paras(),
			new:  paras("a", "b"),
			want: []diff.MatchPair{{Old: -1, New: 0}, {Old: -1, New: 1}},
		},
		{
			name: "empty new yields deletions",
			old:  paras("a", "b"),
			new:  paras(),
			want: []diff.MatchPair{{Old: 0, New: -1}, {Old: 1, New: -1}},
		},
		{
			name: "identical sequences match one to one",
			old:  paras("a", "b", "c"),
			new:  paras("a", "b", "c"),
			want: []diff.MatchPair{{Old: 0, New: 0}, {Old: 1, New: 1}, {Old: 2, New: 2}},
		},
		{
			name: "disjoint types never pair",
			old:  seq(para("price list")),
			new:  seq(cell("price list")),
			want: []diff.MatchPair{{Old: 0, New: -1}, {Old: -1, New: 0}},
		},
		{
			name: "gap deletions come before insertions and before the anchor",
			old:  paras("intro", "apple pie recipe", "outro"),
			new:  paras("intro", "quantum mechanics overview", "outro"),
			want: []diff.MatchPair{
				{Old: 0, New: 0},
				{Old: 1, New: -1},
				{Old: -1, New: 1},
				{Old: 2, New: 2},
			},
		},
		{
			name: "near duplicate is paired inside its gap",
			old:  paras("intro", "The cat sat.", "outro"),
			new:  paras("intro", "The cat sat quietly.", "outro"),
			want: []diff.MatchPair{{Old: 0, New: 0}, {Old: 1, New: 1}, {Old: 2, New: 2}},
		},
		{
			name: "inserted paragraph keeps surrounding matches",
			old:  paras("a", "c"),
			new:  paras("a", "b", "c"),
			want: []diff.MatchPair{{Old: 0, New: 0}, {Old: -1, New: 1}, {Old: 1, New: 2}},
		},
		{
			name: "images only match exactly",
			old:  seq(image("aaa")),
			new:  seq(image("aab")),
			want: []diff.MatchPair{{Old: 0, New: -1}, {Old: -1, New: 0}},
		},
		{
			name: "identical images match",
			old:  seq(para("figure"), image("aaa")),
			new:  seq(para("figure"), image("aaa")),
			want: []diff.MatchPair{{Old: 0, New: 0}, {Old: 1, New: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := diff.Align(tt.old, tt.new, diff.DefaultAlignOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlignTieBreakPrefersSmallestDisplacement(t *testing.T) {
	// Both old units score the same against the new one.
	old := paras("red fox jumps", "red fox leaps")
	new := paras("red fox runs")

	got, err := diff.Align(old, new, diff.DefaultAlignOptions())
	require.NoError(t, err)
	assert.Equal(t, []diff.MatchPair{{Old: 0, New: 0}, {Old: 1, New: -1}}, got)
}

func TestAlignSkipsCrossingFuzzyPairs(t *testing.T) {
	old := paras("alpha beta gamma delta", "one two three four")
	new := paras("one two three four five six", "alpha beta gamma delta epsilon")

	got, err := diff.Align(old, new, diff.DefaultAlignOptions())
	require.NoError(t, err)
	// The stronger pair wins; the weaker one would cross it.
	assert.Equal(t, []diff.MatchPair{
		{Old: -1, New: 0},
		{Old: 0, New: 1},
		{Old: 1, New: -1},
	}, got)
}

func TestAlignMinMatchThreshold(t *testing.T) {
	old := paras("The cat sat.")
	new := paras("The cat sat quietly.")

	opts := diff.DefaultAlignOptions()
	opts.MinMatch = 0.9
	got, err := diff.Align(old, new, opts)
	require.NoError(t, err)
	assert.Equal(t, []diff.MatchPair{{Old: 0, New: -1}, {Old: -1, New: 0}}, got)
}

func TestAlignFuzzyWindowOnLopsidedGap(t *testing.T) {
	texts := make([]string, 10)
	for k := range texts {
		texts[k] = fmt.Sprintf("clause %d", k)
	}
	old := paras(texts...)
	new := paras("clause 8 amended")

	deletions := func(from, to int) []diff.MatchPair {
		var out []diff.MatchPair
		for i := from; i < to; i++ {
			out = append(out, diff.MatchPair{Old: i, New: -1})
		}
		return out
	}

	tests := []struct {
		name   string
		window int
		want   []diff.MatchPair
	}{
		{
			name:   "only the old side exceeds the window",
			window: 3,
			want:   append(deletions(0, 10), diff.MatchPair{Old: -1, New: 0}),
		},
		{
			name:   "no window",
			window: 0,
			want:   append(append(deletions(0, 8), diff.MatchPair{Old: 8, New: 0}), deletions(9, 10)...),
		},
		{
			name:   "window wide enough",
			window: 8,
			want:   append(append(deletions(0, 8), diff.MatchPair{Old: 8, New: 0}), deletions(9, 10)...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := diff.DefaultAlignOptions()
			opts.FuzzyWindow = tt.window
			got, err := diff.Align(old, new, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlignMyersMatchesTable(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"a", "b", "c", "d", "e"}
	random := func(n int) *document.Sequence {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = words[rng.Intn(len(words))]
		}
		return paras(texts...)
	}

	exact := diff.DefaultAlignOptions()
	exact.MinMatch = 1
	myers := exact
	myers.MaxDPCells = 0

	for round := 0; round < 50; round++ {
		old, new := random(rng.Intn(30)), random(rng.Intn(30))

		table, err := diff.Align(old, new, exact)
		require.NoError(t, err)
		greedy, err := diff.Align(old, new, myers)
		require.NoError(t, err)

		assert.Equal(t, countMatched(table), countMatched(greedy), "round %d", round)
		assertComplete(t, old, new, greedy)
		assertMonotonic(t, greedy)
	}
}

// ----------------------------------------------------------------------------
// Properties
// ----------------------------------------------------------------------------

func TestAlignProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocabulary := []string{
		"The cat sat.", "The cat sat quietly.", "Payment due in 30 days.",
		"Payment due in 45 days.", "Quantum mechanics overview", "Apple pie recipe",
	}
	random := func(n int) *document.Sequence {
		units := make([]document.Unit, n)
		for i := range units {
			text := vocabulary[rng.Intn(len(vocabulary))]
			switch rng.Intn(4) {
			case 0:
				units[i] = cell(text)
			case 1:
				units[i] = image(text[:3])
			default:
				units[i] = para(text)
			}
		}
		return seq(units...)
	}

	for round := 0; round < 100; round++ {
		old, new := random(rng.Intn(20)), random(rng.Intn(20))
		pairs, err := diff.Align(old, new, diff.DefaultAlignOptions())
		require.NoError(t, err)

		assertComplete(t, old, new, pairs)
		assertMonotonic(t, pairs)
		for _, p := range pairs {
			assert.False(t, p.Old < 0 && p.New < 0, "pair with neither side")
			if p.Matched() {
				assert.Equal(t, old.Units[p.Old].Type, new.Units[p.New].Type)
			}
		}

		same, err := diff.Align(old, old, diff.DefaultAlignOptions())
		require.NoError(t, err)
		for i, p := range same {
			assert.Equal(t, diff.MatchPair{Old: i, New: i}, p)
		}
	}
}

func countMatched(pairs []diff.MatchPair) int {
	n := 0
	for _, p := range pairs {
		if p.Matched() {
			n++
		}
	}
	return n
}

// assertComplete checks every unit of both sides appears exactly once.
func assertComplete(t *testing.T, old, new *document.Sequence, pairs []diff.MatchPair) {
	t.Helper()
	seenOld := make([]int, old.Len())
	seenNew := make([]int, new.Len())
	for _, p := range pairs {
		if p.Old >= 0 {
			seenOld[p.Old]++
		}
		if p.New >= 0 {
			seenNew[p.New]++
		}
	}
	for i, n := range seenOld {
		assert.Equal(t, 1, n, "old unit %d", i)
	}
	for j, n := range seenNew {
		assert.Equal(t, 1, n, "new unit %d", j)
	}
}

// assertMonotonic checks matched pairs never cross and that the old and new
// sides each appear in increasing order.
func assertMonotonic(t *testing.T, pairs []diff.MatchPair) {
	t.Helper()
	lastOld, lastNew := -1, -1
	for _, p := range pairs {
		if p.Old >= 0 {
			assert.Greater(t, p.Old, lastOld)
			lastOld = p.Old
		}
		if p.New >= 0 {
			assert.Greater(t, p.New, lastNew)
			lastNew = p.New
		}
	}
}

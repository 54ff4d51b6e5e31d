// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"slices"
	"sort"

	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/textsim"
)

// AlignOptions tunes the alignment engine.
type AlignOptions struct {
	// MinMatch is the lowest textual similarity, in [0,1], at which two
	// unmatched units of the same type are paired as near-duplicates.
	MinMatch float64
	// MaxDPCells bounds the size of the dynamic programming table. Larger
	// problems use the Myers difference algorithm.
	MaxDPCells int
	// FuzzyWindow limits how far apart, in positions, two units of a gap
	// may be to be considered for near-duplicate pairing. It applies once
	// either side of the gap is longer than the window. Zero disables the
	// limit.
	FuzzyWindow int
}

// MaxDPCellsLimit caps AlignOptions.MaxDPCells. A table this size holds
// 256 MiB of int32 cells.
const MaxDPCellsLimit = 1 << 26

// DefaultAlignOptions returns the defaults used by the CLI.
func DefaultAlignOptions() AlignOptions {
	return AlignOptions{
		MinMatch:    0.5,
		MaxDPCells:  4 << 20,
		FuzzyWindow: 256,
	}
}

func (o AlignOptions) validate() error {
	if o.MinMatch < 0 || o.MinMatch > 1 {
		return &ConfigurationError{Field: "alignment.min_match", Message: fmt.Sprintf("%v is outside [0,1]", o.MinMatch)}
	}
	if o.MaxDPCells < 0 {
		return &ConfigurationError{Field: "alignment.max_dp_cells", Message: "must not be negative"}
	}
	if o.MaxDPCells > MaxDPCellsLimit {
		return &ConfigurationError{Field: "alignment.max_dp_cells", Message: fmt.Sprintf("%d exceeds %d", o.MaxDPCells, MaxDPCellsLimit)}
	}
	if o.FuzzyWindow < 0 {
		return &ConfigurationError{Field: "alignment.fuzzy_window", Message: "must not be negative"}
	}
	return nil
}

// Align pairs the units of old and new. Units with equal (type, text) keys
// form a longest common subsequence backbone; the remaining units of each gap
// between backbone anchors are paired greedily by textual similarity. The
// result lists, for each gap, its deletions then its insertions, followed by
// the anchor closing the gap.
func Align(old, new *document.Sequence, opts AlignOptions) ([]MatchPair, error) {
	if old == nil {
		return nil, &ConfigurationError{Field: "old", Message: "sequence is nil"}
	}
	if new == nil {
		return nil, &ConfigurationError{Field: "new", Message: "sequence is nil"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	anchors := backbone(keys(old.Units), keys(new.Units), opts.MaxDPCells)
	anchors = pairGaps(old.Units, new.Units, anchors, opts)
	return emit(anchors, len(old.Units), len(new.Units)), nil
}

func keys(units []document.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Key()
	}
	return out
}

// backbone returns the pairs of a longest common subsequence of a and b,
// increasing in both indices.
func backbone(a, b []string, maxCells int) []MatchPair {
	n, m := len(a), len(b)
	if slices.Equal(a, b) {
		pairs := make([]MatchPair, n)
		for i := range pairs {
			pairs[i] = MatchPair{Old: i, New: i}
		}
		return pairs
	}

	pre := 0
	for pre < n && pre < m && a[pre] == b[pre] {
		pre++
	}
	suf := 0
	for suf < n-pre && suf < m-pre && a[n-1-suf] == b[m-1-suf] {
		suf++
	}

	pairs := make([]MatchPair, 0, pre+suf)
	for i := 0; i < pre; i++ {
		pairs = append(pairs, MatchPair{Old: i, New: i})
	}
	midA, midB := a[pre:n-suf], b[pre:m-suf]
	if len(midA) > 0 && len(midB) > 0 {
		var mid []MatchPair
		if int64(len(midA))*int64(len(midB)) <= int64(maxCells) {
			mid = lcsTable(midA, midB)
		} else {
			mid = lcsMyers(midA, midB)
		}
		for _, p := range mid {
			pairs = append(pairs, MatchPair{Old: p.Old + pre, New: p.New + pre})
		}
	}
	for k := 0; k < suf; k++ {
		pairs = append(pairs, MatchPair{Old: n - suf + k, New: m - suf + k})
	}
	return pairs
}

// lcsTable computes the LCS with a suffix length table and walks it from the
// front, preferring to skip old units on ties.
func lcsTable(a, b []string) []MatchPair {
	n, m := len(a), len(b)
	w := m + 1
	table := make([]int32, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				table[i*w+j] = table[(i+1)*w+j+1] + 1
			case table[(i+1)*w+j] >= table[i*w+j+1]:
				table[i*w+j] = table[(i+1)*w+j]
			default:
				table[i*w+j] = table[i*w+j+1]
			}
		}
	}

	pairs := make([]MatchPair, 0, table[0])
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, MatchPair{Old: i, New: j})
			i++
			j++
		case table[(i+1)*w+j] >= table[i*w+j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

// lcsMyers computes the LCS with the O((n+m)d) greedy algorithm from Myers,
// "An O(ND) Difference Algorithm and Its Variations". Each round keeps only
// the diagonals it can reach, so the trace costs O(d²) memory.
func lcsMyers(a, b []string) []MatchPair {
	n, m := len(a), len(b)
	limit := n + m
	offset := limit + 1
	v := make([]int, 2*limit+3)

	// trace[d] holds v[-d-1..d+1] as it was before round d.
	var trace [][]int
	last := -1
	for d := 0; d <= limit && last < 0; d++ {
		trace = append(trace, slices.Clone(v[offset-d-1:offset+d+2]))
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				last = d
				break
			}
		}
	}

	var pairs []MatchPair
	x, y := n, m
	for d := last; d >= 0; d-- {
		snap := trace[d]
		at := func(k int) int { return snap[k+d+1] }
		k := x - y
		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := at(prevK)
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			pairs = append(pairs, MatchPair{Old: x, New: y})
		}
		if d > 0 {
			x, y = prevX, prevY
		}
	}
	slices.Reverse(pairs)
	return pairs
}

// pairGaps adds near-duplicate pairs inside every gap between consecutive
// anchors. Pairs never leave their gap, so the merged list stays increasing.
func pairGaps(old, new []document.Unit, anchors []MatchPair, opts AlignOptions) []MatchPair {
	out := make([]MatchPair, 0, len(anchors))
	prevOld, prevNew := 0, 0
	for _, a := range anchors {
		out = append(out, pairGap(old[prevOld:a.Old], new[prevNew:a.New], prevOld, prevNew, opts)...)
		out = append(out, a)
		prevOld, prevNew = a.Old+1, a.New+1
	}
	return append(out, pairGap(old[prevOld:], new[prevNew:], prevOld, prevNew, opts)...)
}

type candidate struct {
	i, j  int
	score float64
	disp  int
}

// pairGap greedily pairs units of one gap by descending similarity. Ties go
// to the smaller displacement from the gap diagonal, then the lower old
// index, then the lower new index. A candidate that would cross an earlier
// choice is skipped.
func pairGap(olds, news []document.Unit, baseOld, baseNew int, opts AlignOptions) []MatchPair {
	if len(olds) == 0 || len(news) == 0 {
		return nil
	}
	windowed := opts.FuzzyWindow > 0 && (len(olds) > opts.FuzzyWindow || len(news) > opts.FuzzyWindow)

	newTokens := make([]textsim.Tokenized, len(news))
	for j, nu := range news {
		newTokens[j] = textsim.Tokenize(nu.Text)
	}

	var cands []candidate
	for i, ou := range olds {
		if ou.Type == document.Image {
			continue
		}
		lo, hi := 0, len(news)
		if windowed {
			lo, hi = max(0, i-opts.FuzzyWindow), min(len(news), i+opts.FuzzyWindow+1)
		}
		if lo >= hi {
			continue
		}
		oldTokens := textsim.Tokenize(ou.Text)
		for j := lo; j < hi; j++ {
			nu := news[j]
			if nu.Type != ou.Type {
				continue
			}
			disp := abs(i - j)
			if textsim.UpperBound(oldTokens, newTokens[j]) < opts.MinMatch {
				continue
			}
			score := textsim.SimilarityTokens(oldTokens, newTokens[j])
			if score < opts.MinMatch || score == 0 {
				continue
			}
			cands = append(cands, candidate{i: i, j: j, score: score, disp: disp})
		}
	}
	sort.Slice(cands, func(x, y int) bool {
		cx, cy := cands[x], cands[y]
		if cx.score != cy.score {
			return cx.score > cy.score
		}
		if cx.disp != cy.disp {
			return cx.disp < cy.disp
		}
		if cx.i != cy.i {
			return cx.i < cy.i
		}
		return cx.j < cy.j
	})

	usedOld := make([]bool, len(olds))
	usedNew := make([]bool, len(news))
	// chosen is kept sorted by old index; being non-crossing it is also
	// sorted by new index.
	var chosen []candidate
	for _, c := range cands {
		if usedOld[c.i] || usedNew[c.j] {
			continue
		}
		at := sort.Search(len(chosen), func(k int) bool { return chosen[k].i > c.i })
		if at > 0 && chosen[at-1].j > c.j {
			continue
		}
		if at < len(chosen) && chosen[at].j < c.j {
			continue
		}
		chosen = slices.Insert(chosen, at, c)
		usedOld[c.i] = true
		usedNew[c.j] = true
	}

	pairs := make([]MatchPair, len(chosen))
	for k, c := range chosen {
		pairs[k] = MatchPair{Old: baseOld + c.i, New: baseNew + c.j}
	}
	return pairs
}

// emit interleaves the unpaired units around the increasing pairs: each
// gap's deletions, then its insertions, then the pair that closes it.
func emit(pairs []MatchPair, n, m int) []MatchPair {
	out := make([]MatchPair, 0, n+m-len(pairs))
	i, j := 0, 0
	flush := func(toOld, toNew int) {
		for ; i < toOld; i++ {
			out = append(out, MatchPair{Old: i, New: -1})
		}
		for ; j < toNew; j++ {
			out = append(out, MatchPair{Old: -1, New: j})
		}
	}
	for _, p := range pairs {
		flush(p.Old, p.New)
		out = append(out, p)
		i, j = p.Old+1, p.New+1
	}
	flush(n, m)
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

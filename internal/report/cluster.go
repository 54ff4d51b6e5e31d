// SPDX-License-Identifier: Apache-2.0

package report

import (
	"sort"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/textsim"
)

// minClustered is the fewest modifications worth clustering.
const minClustered = 3

// Options tunes the heuristic parts of the model.
type Options struct {
	// ClusterThreshold is the textual similarity, in [0,1], at which two
	// modified entries are linked into the same cluster. Zero disables
	// clustering.
	ClusterThreshold float64
}

// DefaultOptions returns the options used by Build.
func DefaultOptions() Options {
	return Options{ClusterThreshold: 0.4}
}

// Cluster is a group of modifications whose texts resemble each other.
type Cluster struct {
	// ID counts from 1 in order of the first member.
	ID      int
	Entries []int
	Labels  []string
}

// cluster links modified entries single-link style: two entries share a
// cluster when a chain of pairs scoring at least threshold connects them.
// Entries are compared by their new text, or the old one when it is absent.
// Only clusters of two or more entries are returned, and Entry.Cluster is set
// for their members.
func cluster(entries []Entry, threshold float64) []Cluster {
	out := []Cluster{}
	if threshold <= 0 {
		return out
	}
	var members []int
	for i, e := range entries {
		if e.Kind == diff.Modified {
			members = append(members, i)
		}
	}
	if len(members) < minClustered {
		return out
	}

	texts := make([]textsim.Tokenized, len(members))
	for k, i := range members {
		texts[k] = textsim.Tokenize(clusterText(entries[i]))
	}

	parent := make([]int, len(members))
	for k := range parent {
		parent[k] = k
	}
	var find func(int) int
	find = func(k int) int {
		if parent[k] != k {
			parent[k] = find(parent[k])
		}
		return parent[k]
	}
	for a := range members {
		for b := a + 1; b < len(members); b++ {
			ra, rb := find(a), find(b)
			if ra == rb || textsim.UpperBound(texts[a], texts[b]) < threshold {
				continue
			}
			if textsim.SimilarityTokens(texts[a], texts[b]) >= threshold {
				// The lower root wins so IDs follow document order.
				parent[max(ra, rb)] = min(ra, rb)
			}
		}
	}

	byRoot := map[int][]int{}
	var roots []int
	for k, i := range members {
		r := find(k)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	for _, r := range roots {
		idx := byRoot[r]
		if len(idx) < 2 {
			continue
		}
		c := Cluster{ID: len(out) + 1, Entries: idx, Labels: []string{}}
		seen := map[string]struct{}{}
		for _, i := range idx {
			entries[i].Cluster = c.ID
			for _, l := range entries[i].Labels {
				if _, ok := seen[l]; !ok {
					seen[l] = struct{}{}
					c.Labels = append(c.Labels, l)
				}
			}
		}
		sort.Strings(c.Labels)
		out = append(out, c)
	}
	return out
}

func clusterText(e Entry) string {
	if e.NewText != nil {
		return *e.NewText
	}
	if e.OldText != nil {
		return *e.OldText
	}
	return ""
}

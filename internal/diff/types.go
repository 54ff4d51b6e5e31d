// SPDX-License-Identifier: Apache-2.0

// Package diff aligns two unit sequences and classifies the aligned pairs
// into change records.
package diff

import (
	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/oracle"
)

// ChangeKind values are part of the JSON export and must not change.
type ChangeKind string

const (
	Added     ChangeKind = "added"
	Deleted   ChangeKind = "deleted"
	Modified  ChangeKind = "modified"
	Unchanged ChangeKind = "unchanged"
)

// ChangeKinds lists every kind in presentation order.
func ChangeKinds() []ChangeKind {
	return []ChangeKind{Added, Deleted, Modified, Unchanged}
}

// Category describes the nature of a modification.
type Category string

const (
	Substantive Category = "substantive"
	Technical   Category = "technical"
	Editorial   Category = "editorial"
	Formal      Category = "formal"
)

const (
	// MaxScore is the score of an unchanged pair.
	MaxScore = oracle.MaxScore
	// MaxModifiedScore keeps modifications strictly below MaxScore.
	MaxModifiedScore = 9.99
)

// MatchPair links a position in the old sequence to a position in the new
// one. Absent sides are -1; both sides are never absent.
type MatchPair struct {
	Old int
	New int
}

// Matched reports whether both sides are present.
func (p MatchPair) Matched() bool {
	return p.Old >= 0 && p.New >= 0
}

// ChangeRecord is the classification of one aligned pair.
type ChangeRecord struct {
	Kind ChangeKind
	Old  *document.Unit
	New  *document.Unit
	// Score is nil for added and deleted records.
	Score    *float64
	Entities []oracle.Entity
	// Degraded marks a score computed by the local fallback.
	Degraded bool
	// Category is set on modified records only.
	Category Category
}

// Type returns the unit type of the record.
func (r ChangeRecord) Type() document.UnitType {
	if r.New != nil {
		return r.New.Type
	}
	if r.Old != nil {
		return r.Old.Type
	}
	return ""
}

// Result is the ordered outcome of one comparison.
type Result struct {
	// OldSource and NewSource name the compared revisions.
	OldSource string
	NewSource string
	Records   []ChangeRecord
}

// Degraded counts the records scored by the fallback.
func (r *Result) Degraded() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Degraded {
			n++
		}
	}
	return n
}

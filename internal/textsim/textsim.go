// SPDX-License-Identifier: Apache-2.0

// Package textsim provides the cheap textual similarity used to pair
// near-duplicate units and to score modifications when no oracle answer is
// available.
package textsim

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
)

// Tokens case-folds s and splits it into runs of letters and digits.
func Tokens(s string) []string {
	folded := cases.Fold().String(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Similarity returns a score in [0,1]: 1 for identical strings, otherwise the
// matching-block ratio of the two token sequences.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return SimilarityTokens(Tokenize(a), Tokenize(b))
}

// Tokenized keeps a text next to its tokens so callers comparing one text
// many times split it only once.
type Tokenized struct {
	Text   string
	Tokens []string
}

func Tokenize(s string) Tokenized {
	return Tokenized{Text: s, Tokens: Tokens(s)}
}

// SimilarityTokens is Similarity over already tokenized texts.
func SimilarityTokens(a, b Tokenized) float64 {
	if a.Text == b.Text {
		return 1
	}
	if len(a.Tokens) == 0 || len(b.Tokens) == 0 {
		return 0
	}
	return matcher(a.Tokens, b.Tokens).Ratio()
}

// UpperBound is the best score SimilarityTokens could return for a and b,
// computed from the token counts alone.
func UpperBound(a, b Tokenized) float64 {
	if a.Text == b.Text {
		return 1
	}
	la, lb := len(a.Tokens), len(b.Tokens)
	if la == 0 || lb == 0 {
		return 0
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

// OpKind is the type of an inline edit operation.
type OpKind string

const (
	OpEqual  OpKind = "equal"
	OpDelete OpKind = "delete"
	OpInsert OpKind = "insert"
)

// Op is one run of an inline diff.
type Op struct {
	Kind OpKind `json:"kind"`
	Text string `json:"text"`
}

// InlineOps computes a word-level diff of a and b. Whitespace is kept as its
// own token so that concatenating the equal and delete runs yields a, and the
// equal and insert runs yield b.
func InlineOps(a, b string) []Op {
	ta, tb := splitKeepSpace(a), splitKeepSpace(b)
	var ops []Op
	emit := func(kind OpKind, parts []string) {
		if len(parts) == 0 {
			return
		}
		text := strings.Join(parts, "")
		if n := len(ops); n > 0 && ops[n-1].Kind == kind {
			ops[n-1].Text += text
			return
		}
		ops = append(ops, Op{Kind: kind, Text: text})
	}
	for _, oc := range matcher(ta, tb).GetOpCodes() {
		switch oc.Tag {
		case 'e':
			emit(OpEqual, ta[oc.I1:oc.I2])
		case 'd':
			emit(OpDelete, ta[oc.I1:oc.I2])
		case 'i':
			emit(OpInsert, tb[oc.J1:oc.J2])
		case 'r':
			emit(OpDelete, ta[oc.I1:oc.I2])
			emit(OpInsert, tb[oc.J1:oc.J2])
		}
	}
	return ops
}

func splitKeepSpace(s string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			out = append(out, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// matcher disables the popular-element heuristic so long paragraphs with
// frequent words still score by their full token overlap.
func matcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

// SPDX-License-Identifier: Apache-2.0

package textsim_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gemaraproj/docdiff/internal/textsim"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"payment", "due", "in", "30", "days"}, textsim.Tokens("Payment due, in 30 days!"))
	assert.Equal(t, []string{"strasse"}, textsim.Tokens("STRASSE"))
	assert.Empty(t, textsim.Tokens(" .,; "))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "The cat sat.", b: "The cat sat.", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "The cat sat.", b: "", want: 0},
		{name: "only punctuation differs", a: "The cat sat.", b: "the cat sat", want: 1},
		{name: "one word added", a: "The cat sat.", b: "The cat sat quietly.", want: 6.0 / 7.0},
		{name: "disjoint", a: "apple pie", b: "quantum mechanics", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, textsim.Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a := "Payment is due within 30 days of the invoice date."
	b := "Payment is due within 45 days of the delivery date."
	assert.InDelta(t, textsim.Similarity(a, b), textsim.Similarity(b, a), 1e-9)
}

func TestSimilarityTokensMatchesSimilarity(t *testing.T) {
	pairs := [][2]string{
		{"The cat sat.", "The cat sat quietly."},
		{"The cat sat.", "the cat sat"},
		{"", ""},
		{"apple pie", ""},
		{"Payment due in 30 days.", "Payment due in 45 days."},
	}
	for _, p := range pairs {
		a, b := textsim.Tokenize(p[0]), textsim.Tokenize(p[1])
		score := textsim.SimilarityTokens(a, b)
		assert.InDelta(t, textsim.Similarity(p[0], p[1]), score, 1e-9, "%q vs %q", p[0], p[1])
		assert.GreaterOrEqual(t, textsim.UpperBound(a, b), score, "%q vs %q", p[0], p[1])
	}
}

func TestUpperBound(t *testing.T) {
	short := textsim.Tokenize("clause 3")
	long := textsim.Tokenize("clause 3 of the master agreement")
	assert.InDelta(t, 2.0*2.0/8.0, textsim.UpperBound(short, long), 1e-9)
	assert.InDelta(t, 0, textsim.UpperBound(short, textsim.Tokenize("...")), 1e-9)
	assert.InDelta(t, 1, textsim.UpperBound(short, short), 1e-9)
}

func TestInlineOps(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want []textsim.Op
	}{
		{
			name: "replacement",
			a:    "due within 30 days",
			b:    "due within 45 days",
			want: []textsim.Op{
				{Kind: textsim.OpEqual, Text: "due within "},
				{Kind: textsim.OpDelete, Text: "30"},
				{Kind: textsim.OpInsert, Text: "45"},
				{Kind: textsim.OpEqual, Text: " days"},
			},
		},
		{
			name: "insertion",
			a:    "The cat sat.",
			b:    "The black cat sat.",
			want: []textsim.Op{
				{Kind: textsim.OpEqual, Text: "The"},
				{Kind: textsim.OpInsert, Text: " black"},
				{Kind: textsim.OpEqual, Text: " cat sat."},
			},
		},
		{
			name: "equal",
			a:    "same text",
			b:    "same text",
			want: []textsim.Op{{Kind: textsim.OpEqual, Text: "same text"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textsim.InlineOps(tt.a, tt.b))
		})
	}
}

func TestInlineOpsReconstructsBothSides(t *testing.T) {
	a := "Governing law:  art. 5 of the act,\tas amended."
	b := "Governing law: art. 7 of the 2021 act."

	var old, new strings.Builder
	for _, op := range textsim.InlineOps(a, b) {
		switch op.Kind {
		case textsim.OpEqual:
			old.WriteString(op.Text)
			new.WriteString(op.Text)
		case textsim.OpDelete:
			old.WriteString(op.Text)
		case textsim.OpInsert:
			new.WriteString(op.Text)
		}
	}
	assert.Equal(t, a, old.String())
	assert.Equal(t, b, new.String())
}

// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/gemaraproj/docdiff/internal/textsim"
)

// Rule tags every match of Pattern with Label.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// DefaultLabels is the label table used when the configuration names none.
// Keys are labels, values are regular expressions.
func DefaultLabels() map[string]string {
	return map[string]string{
		"amount":    `(?i)\b\d+(?:[.,]\d+)?\s?(?:eur|usd|pln|gbp|chf)\b|[$€£]\s?\d+(?:[.,]\d+)?`,
		"date":      `\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[./]\d{1,2}[./]\d{2,4}\b|\b(?:19|20)\d{2}\b`,
		"legal_ref": `(?i)§\s?\d+|\bart\.\s?\d+|\barticle\s+\d+|\bsection\s+\d+`,
		"number":    `\b\d+(?:[.,]\d+)?\b`,
		"percent":   `\b\d+(?:[.,]\d+)?\s?%`,
		"unit":      `(?i)\b\d+(?:[.,]\d+)?\s?(?:kg|g|mm|cm|km|m|kw|kwh|mb|gb|ms|s)\b`,
	}
}

// CompileRules compiles a label table into rules ordered by label.
func CompileRules(labels map[string]string) ([]Rule, error) {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		re, err := regexp.Compile(labels[name])
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", name, err)
		}
		rules = append(rules, Rule{Label: name, Pattern: re})
	}
	return rules, nil
}

// Heuristic is a local oracle: similarity comes from token overlap and
// entities from the configured label rules. It never fails.
type Heuristic struct {
	rules []Rule
}

// NewHeuristic creates a heuristic oracle with the given rules. A nil slice
// yields an oracle that labels nothing.
func NewHeuristic(rules []Rule) *Heuristic {
	return &Heuristic{rules: rules}
}

func (h *Heuristic) Score(ctx context.Context, a, b string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{
		Similarity: textsim.Similarity(a, b) * MaxScore,
		Entities:   h.Entities(a, b),
	}, nil
}

// Entities labels every rule match in the given texts, without duplicates,
// in rule order then text order.
func (h *Heuristic) Entities(texts ...string) []Entity {
	var out []Entity
	seen := map[Entity]struct{}{}
	for _, rule := range h.rules {
		for _, text := range texts {
			for _, span := range rule.Pattern.FindAllString(text, -1) {
				e := Entity{Label: rule.Label, Span: span}
				if _, ok := seen[e]; ok {
					continue
				}
				seen[e] = struct{}{}
				out = append(out, e)
			}
		}
	}
	return out
}

var _ Oracle = (*Heuristic)(nil)

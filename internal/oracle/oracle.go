// SPDX-License-Identifier: Apache-2.0

// Package oracle defines the similarity oracle consulted for every pair of
// matched units whose text differs, along with its implementations.
package oracle

import (
	"context"
	"errors"
	"sort"
)

// MaxScore is the top of the similarity scale.
const MaxScore = 10.0

var (
	// ErrUnavailable indicates the oracle could not produce an answer.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrTimeout indicates the oracle did not answer within its deadline.
	ErrTimeout = errors.New("oracle timeout")
	// ErrInvalidResponse indicates the oracle answered with something unusable.
	ErrInvalidResponse = errors.New("oracle response invalid")
)

// Entity is a labeled span found in one of the compared texts.
type Entity struct {
	Label string `json:"label"`
	Span  string `json:"span"`
}

// Result is the oracle's answer for one text pair.
type Result struct {
	// Similarity is on a 0 to 10 scale.
	Similarity float64  `json:"similarity"`
	Entities   []Entity `json:"entities"`
}

// Oracle scores the similarity of two text spans and labels their entities.
type Oracle interface {
	Score(ctx context.Context, a, b string) (Result, error)
}

// Code is a short error category used in log fields.
type Code string

const (
	CodeUnknown     Code = "unknown"
	CodeTimeout     Code = "timeout"
	CodeUnavailable Code = "unavailable"
	CodeInvalid     Code = "invalid"
	CodeCancel      Code = "cancel"
)

// Classify maps err to a Code. Only sentinels and context errors are
// inspected, never message text.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancel
	case errors.Is(err, ErrInvalidResponse):
		return CodeInvalid
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	}
	return CodeUnknown
}

// Labels returns the distinct entity labels in sorted order.
func Labels(entities []Entity) []string {
	seen := make(map[string]struct{}, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if _, ok := seen[e.Label]; ok {
			continue
		}
		seen[e.Label] = struct{}{}
		out = append(out, e.Label)
	}
	sort.Strings(out)
	return out
}

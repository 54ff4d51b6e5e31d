// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/oracle"
	"github.com/gemaraproj/docdiff/internal/textsim"
)

// Options tunes the change classifier.
type Options struct {
	// UnrelatedFloor is the score below which a matched pair is reported as
	// a deletion followed by an insertion.
	UnrelatedFloor float64
	// Concurrency bounds the number of oracle calls in flight.
	Concurrency int
	// OracleTimeout bounds each oracle call. Zero means no per-call limit.
	OracleTimeout time.Duration
	Logger        *slog.Logger
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		UnrelatedFloor: 3.0,
		Concurrency:    4,
		OracleTimeout:  5 * time.Second,
	}
}

// Classifier turns aligned pairs into change records, consulting an oracle
// for every matched pair whose text differs.
type Classifier struct {
	oracle oracle.Oracle
	opts   Options
	logger *slog.Logger
}

// NewClassifier validates opts and returns a classifier backed by o.
func NewClassifier(o oracle.Oracle, opts Options) (*Classifier, error) {
	if o == nil {
		return nil, &ConfigurationError{Field: "oracle", Message: "is nil"}
	}
	if opts.UnrelatedFloor < 0 || opts.UnrelatedFloor > MaxModifiedScore {
		return nil, &ConfigurationError{
			Field:   "classifier.unrelated_floor",
			Message: fmt.Sprintf("%v is outside [0,%v]", opts.UnrelatedFloor, MaxModifiedScore),
		}
	}
	if opts.Concurrency < 1 {
		return nil, &ConfigurationError{Field: "classifier.concurrency", Message: "must be at least 1"}
	}
	if opts.OracleTimeout < 0 {
		return nil, &ConfigurationError{Field: "classifier.oracle_timeout", Message: "must not be negative"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{oracle: o, opts: opts, logger: logger}, nil
}

// Classify builds the change records for pairs in order. Oracle failures
// fall back to textual similarity and never fail the call; cancellation of
// ctx does, and no partial result is returned.
func (c *Classifier) Classify(ctx context.Context, pairs []MatchPair, old, new *document.Sequence) (*Result, error) {
	if old == nil {
		return nil, &ConfigurationError{Field: "old", Message: "sequence is nil"}
	}
	if new == nil {
		return nil, &ConfigurationError{Field: "new", Message: "sequence is nil"}
	}
	if err := checkPairs(pairs, old.Len(), new.Len()); err != nil {
		return nil, err
	}

	// Every pair owns one slot; demoted pairs fill theirs with two records.
	slots := make([][]ChangeRecord, len(pairs))
	sem := semaphore.NewWeighted(int64(c.opts.Concurrency))
	group, groupCtx := errgroup.WithContext(ctx)

	for idx, p := range pairs {
		if err := ctx.Err(); err != nil {
			_ = group.Wait()
			return nil, err
		}

		var ou, nu *document.Unit
		if p.Old >= 0 {
			u := old.Units[p.Old]
			ou = &u
		}
		if p.New >= 0 {
			u := new.Units[p.New]
			nu = &u
		}

		switch {
		case nu == nil:
			slots[idx] = []ChangeRecord{{Kind: Deleted, Old: ou}}
		case ou == nil:
			slots[idx] = []ChangeRecord{{Kind: Added, New: nu}}
		case ou.Text == nu.Text:
			slots[idx] = []ChangeRecord{{Kind: Unchanged, Old: ou, New: nu, Score: score(MaxScore)}}
		default:
			if err := sem.Acquire(groupCtx, 1); err != nil {
				_ = group.Wait()
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, err
			}
			group.Go(func() error {
				defer sem.Release(1)
				records, err := c.compare(groupCtx, ou, nu)
				if err != nil {
					return err
				}
				slots[idx] = records
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Records: make([]ChangeRecord, 0, len(pairs))}
	for _, records := range slots {
		res.Records = append(res.Records, records...)
	}
	return res, nil
}

// compare scores one matched pair with differing text. The only error it
// returns is the cancellation of ctx.
func (c *Classifier) compare(ctx context.Context, ou, nu *document.Unit) ([]ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.opts.OracleTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.opts.OracleTimeout)
	}
	start := time.Now()
	res, err := c.oracle.Score(callCtx, ou.Text, nu.Text)
	cancel()
	if err == nil && (math.IsNaN(res.Similarity) || math.IsInf(res.Similarity, 0)) {
		err = fmt.Errorf("%w: similarity %v", oracle.ErrInvalidResponse, res.Similarity)
	}

	degraded := false
	if err != nil {
		// A cancelled comparison is not an oracle failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("oracle call degraded to fallback",
			"code", oracle.Classify(err),
			"old_ref", ou.Ref,
			"new_ref", nu.Ref,
			"error", err)
		res = oracle.Result{Similarity: textsim.Similarity(ou.Text, nu.Text) * MaxScore}
		degraded = true
	} else {
		c.logger.Debug("oracle call",
			"old_ref", ou.Ref,
			"new_ref", nu.Ref,
			"similarity", res.Similarity,
			"entities", len(res.Entities),
			"dur_ms", time.Since(start).Milliseconds())
	}

	s := round2(clamp(res.Similarity, 0, MaxScore))
	if s < c.opts.UnrelatedFloor {
		return []ChangeRecord{
			{Kind: Deleted, Old: ou, Degraded: degraded},
			{Kind: Added, New: nu, Degraded: degraded},
		}, nil
	}
	s = math.Min(s, MaxModifiedScore)

	var entities []oracle.Entity
	if !degraded {
		entities = res.Entities
	}
	return []ChangeRecord{{
		Kind:     Modified,
		Old:      ou,
		New:      nu,
		Score:    score(s),
		Entities: entities,
		Degraded: degraded,
		Category: Categorize(ou.Text, nu.Text, oracle.Labels(entities)),
	}}, nil
}

func checkPairs(pairs []MatchPair, n, m int) error {
	for i, p := range pairs {
		if p.Old < 0 && p.New < 0 {
			return &ConfigurationError{Field: "pairs", Message: fmt.Sprintf("pair %d has neither side", i)}
		}
		if p.Old >= n || p.New >= m {
			return &ConfigurationError{Field: "pairs", Message: fmt.Sprintf("pair %d is out of range", i)}
		}
	}
	return nil
}

func score(v float64) *float64 {
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

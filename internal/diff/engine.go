// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"context"
	"log/slog"
	"time"

	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/gemaraproj/docdiff/internal/oracle"
)

// Engine runs alignment and classification for one pair of revisions.
type Engine struct {
	align      AlignOptions
	classifier *Classifier
	logger     *slog.Logger
}

// NewEngine validates both option sets up front.
func NewEngine(o oracle.Oracle, align AlignOptions, opts Options) (*Engine, error) {
	if err := align.validate(); err != nil {
		return nil, err
	}
	classifier, err := NewClassifier(o, opts)
	if err != nil {
		return nil, err
	}
	return &Engine{align: align, classifier: classifier, logger: classifier.logger}, nil
}

// Compare aligns old and new, then classifies the pairs.
func (e *Engine) Compare(ctx context.Context, old, new *document.Sequence) (*Result, error) {
	start := time.Now()
	pairs, err := Align(old, new, e.align)
	if err != nil {
		return nil, err
	}
	e.logger.Info("alignment complete",
		"old_units", old.Len(),
		"new_units", new.Len(),
		"pairs", len(pairs),
		"dur_ms", time.Since(start).Milliseconds())

	start = time.Now()
	res, err := e.classifier.Classify(ctx, pairs, old, new)
	if err != nil {
		return nil, err
	}
	e.logger.Info("classification complete",
		"records", len(res.Records),
		"degraded", res.Degraded(),
		"dur_ms", time.Since(start).Milliseconds())
	res.OldSource, res.NewSource = old.Source, new.Source
	return res, nil
}

// SPDX-License-Identifier: Apache-2.0

package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Pipeline struct {
	normalizers []Normalizer
	logger      *slog.Logger
}

// NewPipeline creates a new Pipeline with the provided normalizers.
// Order matters: the first normalizer whose CanHandle accepts a source wins.
func NewPipeline(normalizers ...Normalizer) *Pipeline {
	return &Pipeline{
		normalizers: normalizers,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger used for stage events.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Load reads the file at path and normalizes it. The format hint is derived
// from the file extension.
func (p *Pipeline) Load(ctx context.Context, path string) (*Sequence, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		var perr *os.PathError
		if errors.As(err, &perr) {
			err = perr.Err
		}
		return nil, &ParseError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	return p.Normalize(ctx, Source{
		Path:    path,
		Content: content,
		Format:  FormatFromPath(path),
	})
}

func (p *Pipeline) Normalize(ctx context.Context, source Source) (*Sequence, error) {
	normalizer, err := p.selectNormalizer(source)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	seq, err := normalizer.Normalize(ctx, source)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &ParseError{Path: source.Path, Normalizer: normalizer.Name(), Err: err}
	}
	p.logger.Info("document normalized",
		"path", source.Path,
		"normalizer", normalizer.Name(),
		"units", seq.Len(),
		"dur_ms", time.Since(start).Milliseconds())
	return seq, nil
}

// selectNormalizer returns the first registered normalizer that can handle the given source.
func (p *Pipeline) selectNormalizer(source Source) (Normalizer, error) {
	for _, normalizer := range p.normalizers {
		if normalizer.CanHandle(source) {
			return normalizer, nil
		}
	}
	return nil, &UnsupportedFormatError{Path: source.Path, Format: source.Format}
}

// RegisteredNormalizers returns the names of all currently registered normalizers.
func (p *Pipeline) RegisteredNormalizers() []string {
	names := make([]string, len(p.normalizers))
	for i, normalizer := range p.normalizers {
		names[i] = normalizer.Name()
	}
	return names
}

// FormatFromPath maps a file extension to a format hint.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "md", "markdown":
		return "markdown"
	case "yml":
		return "yaml"
	case "text":
		return "txt"
	}
	return ext
}

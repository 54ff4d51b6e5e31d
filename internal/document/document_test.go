// SPDX-License-Identifier: Apache-2.0

package document_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/docdiff/internal/document"
)

// ----------------------------------------------------------------------------
// Text normalization
// ----------------------------------------------------------------------------

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapses whitespace", in: "  a \t b\n\nc  ", want: "a b c"},
		{name: "drops control characters", in: "a\x00b\x07c", want: "abc"},
		{name: "applies NFKC", in: "ﬁle №5", want: "file No5"},
		{name: "non-breaking space", in: "10\u00a0kg", want: "10 kg"},
		{name: "empty", in: " \n\t", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, document.NormalizeText(tt.in))
		})
	}
}

func TestImageIdentity(t *testing.T) {
	a := document.ImageIdentity([]byte("png bytes"))
	assert.True(t, strings.HasPrefix(a, "image:"))
	assert.Len(t, a, len("image:")+64)
	assert.Equal(t, a, document.ImageIdentity([]byte("png bytes")))
	assert.NotEqual(t, a, document.ImageIdentity([]byte("other bytes")))
	assert.Equal(t, "image:media/logo.png", document.ImageReference(" media/logo.png "))
}

func TestBuilder(t *testing.T) {
	b := document.NewBuilder(document.Source{Path: "a.txt"}, "txt")
	b.Add(document.Paragraph, "  first  ", "line 1")
	b.Add(document.Paragraph, " \t ", "line 2")
	b.Add(document.TableCell, "", "A1")
	b.Add(document.Image, "image:abc", "media/1.png")

	seq := b.Sequence()
	assert.Equal(t, "a.txt", seq.Source)
	assert.Equal(t, "txt", seq.Format)
	assert.Equal(t, []document.Unit{
		{ID: 0, Type: document.Paragraph, Text: "first", Ref: "line 1"},
		{ID: 1, Type: document.Image, Text: "image:abc", Ref: "media/1.png"},
	}, seq.Units)
}

func TestUnitKeyIncludesType(t *testing.T) {
	p := document.Unit{Type: document.Paragraph, Text: "x"}
	c := document.Unit{Type: document.TableCell, Text: "x"}
	assert.NotEqual(t, p.Key(), c.Key())
	assert.Equal(t, p.Key(), document.Unit{ID: 9, Type: document.Paragraph, Text: "x", Ref: "other"}.Key())
}

func TestSequenceLen(t *testing.T) {
	var nilSeq *document.Sequence
	assert.Equal(t, 0, nilSeq.Len())
	assert.Equal(t, 2, (&document.Sequence{Units: make([]document.Unit, 2)}).Len())
}

func TestUnitTypes(t *testing.T) {
	for _, typ := range document.UnitTypes() {
		assert.True(t, typ.Valid())
	}
	assert.False(t, document.UnitType("footnote").Valid())
}

// ----------------------------------------------------------------------------
// Pipeline
// ----------------------------------------------------------------------------

type fakeNormalizer struct {
	name   string
	format string
	err    error
}

func (f *fakeNormalizer) Name() string { return f.name }

func (f *fakeNormalizer) CanHandle(source document.Source) bool {
	return source.Format == f.format
}

func (f *fakeNormalizer) Normalize(_ context.Context, source document.Source) (*document.Sequence, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := document.NewBuilder(source, f.name)
	b.Add(document.Paragraph, string(source.Content), "all")
	return b.Sequence(), nil
}

func TestPipelineSelectsFirstMatchingNormalizer(t *testing.T) {
	p := document.NewPipeline(
		&fakeNormalizer{name: "first", format: "txt"},
		&fakeNormalizer{name: "second", format: "txt"},
	)
	assert.Equal(t, []string{"first", "second"}, p.RegisteredNormalizers())

	seq, err := p.Normalize(context.Background(), document.Source{Path: "a.txt", Format: "txt", Content: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "first", seq.Format)
	assert.Equal(t, 1, seq.Len())
}

func TestPipelineUnsupportedFormat(t *testing.T) {
	p := document.NewPipeline(&fakeNormalizer{name: "txt", format: "txt"})

	_, err := p.Normalize(context.Background(), document.Source{Path: "deck.pptx", Format: "pptx"})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)

	var uerr *document.UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "deck.pptx", uerr.Path)
	assert.Equal(t, `deck.pptx: unsupported document format "pptx"`, err.Error())
}

func TestPipelineWrapsNormalizerFailures(t *testing.T) {
	cause := errors.New("truncated zip")
	p := document.NewPipeline(&fakeNormalizer{name: "docx", format: "docx", err: cause})

	_, err := p.Normalize(context.Background(), document.Source{Path: "broken.docx", Format: "docx"})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrParse)
	assert.ErrorIs(t, err, cause)

	var perr *document.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "docx", perr.Normalizer)
	assert.Equal(t, "broken.docx: truncated zip", err.Error())
}

func TestPipelineLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.TEXT")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	p := document.NewPipeline(&fakeNormalizer{name: "plain", format: "txt"})
	seq, err := p.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, seq.Source)

	_, err = p.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, document.ErrParse)
	var perr *document.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Cause(), "read:")
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.md":       "markdown",
		"a.MARKDOWN": "markdown",
		"a.yml":      "yaml",
		"a.yaml":     "yaml",
		"a.json":     "json",
		"a.text":     "txt",
		"a.txt":      "txt",
		"a.DOCX":     "docx",
		"a.xlsx":     "xlsx",
		"README":     "",
	}
	for path, want := range tests {
		assert.Equal(t, want, document.FormatFromPath(path), path)
	}
}

func TestParseErrorWithoutCause(t *testing.T) {
	err := &document.ParseError{Path: "x.docx"}
	assert.Equal(t, "x.docx: corrupt document", err.Error())
	assert.ErrorIs(t, err, document.ErrParse)
}

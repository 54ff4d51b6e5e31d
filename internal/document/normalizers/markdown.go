// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gemaraproj/docdiff/internal/document"
)

var (
	markdownImage    = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	markdownTableSep = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
)

// MarkdownNormalizer splits a Markdown document into headings, paragraphs,
// pipe-table cells and image references. The current heading is used as the
// section part of every unit reference.
type MarkdownNormalizer struct{}

// NewMarkdownNormalizer creates a new MarkdownNormalizer.
func NewMarkdownNormalizer() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

func (n *MarkdownNormalizer) Name() string {
	return "markdown"
}

// CanHandle returns true for sources that use the "markdown" format hint,
// or whose content begins with a Markdown heading or common Markdown patterns.
func (n *MarkdownNormalizer) CanHandle(source document.Source) bool {
	if strings.EqualFold(source.Format, "markdown") || strings.EqualFold(source.Format, "md") {
		return true
	}
	if source.Format != "" {
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	return strings.HasPrefix(content, "#") || strings.Contains(content, "\n#")
}

func (n *MarkdownNormalizer) Normalize(_ context.Context, source document.Source) (*document.Sequence, error) {
	lines := strings.Split(strings.ReplaceAll(decodeText(source.Content), "\r\n", "\n"), "\n")

	b := document.NewBuilder(source, n.Name())
	section := "preamble"
	tables := 0
	var para []string
	var rows [][]string

	flushParagraph := func() {
		if len(para) == 0 {
			return
		}
		text := strings.Join(para, " ")
		for _, m := range markdownImage.FindAllStringSubmatch(text, -1) {
			b.Add(document.Image, document.ImageReference(m[1]), section+" / "+m[1])
		}
		b.Add(document.Paragraph, markdownImage.ReplaceAllString(text, ""), section)
		para = nil
	}
	flushTable := func() {
		if len(rows) == 0 {
			return
		}
		tables++
		for r, cells := range rows {
			for c, cell := range cells {
				b.Add(document.TableCell, cell, fmt.Sprintf("%s / table %d / row %d / col %d", section, tables, r+1, c+1))
			}
		}
		rows = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushParagraph()
			flushTable()
		case strings.HasPrefix(trimmed, "#"):
			flushParagraph()
			flushTable()
			section = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			b.Add(document.Paragraph, section, section)
		case strings.HasPrefix(trimmed, "|"):
			flushParagraph()
			if markdownTableSep.MatchString(trimmed) {
				continue
			}
			rows = append(rows, splitTableRow(trimmed))
		default:
			flushTable()
			para = append(para, trimmed)
		}
	}
	flushParagraph()
	flushTable()

	return b.Sequence(), nil
}

func splitTableRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

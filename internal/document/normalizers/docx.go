// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/gemaraproj/docdiff/internal/document"
)

const docxMainPart = "word/document.xml"

var (
	exprBody = xpath.MustCompile("//*[local-name()='body']")
	exprBlip = xpath.MustCompile(".//*[local-name()='blip']")
)

// DocxNormalizer reads WordprocessingML packages. Body paragraphs become
// paragraph units, table cells become table_cell units and embedded pictures
// become image units identified by a hash of their bytes.
type DocxNormalizer struct{}

func NewDocxNormalizer() *DocxNormalizer {
	return &DocxNormalizer{}
}

func (n *DocxNormalizer) Name() string {
	return "docx"
}

func (n *DocxNormalizer) CanHandle(source document.Source) bool {
	switch strings.ToLower(source.Format) {
	case "docx":
		return true
	case "":
		return hasPart(source.Content, docxMainPart)
	}
	return false
}

func (n *DocxNormalizer) Normalize(ctx context.Context, source document.Source) (*document.Sequence, error) {
	pkg, err := openContainer(source.Content)
	if err != nil {
		return nil, err
	}
	root, err := pkg.parseXML(docxMainPart)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.relationships("word/_rels/document.xml.rels", "word")
	if err != nil {
		return nil, err
	}
	body := xmlquery.QuerySelector(root, exprBody)
	if body == nil {
		return nil, fmt.Errorf("%s has no body", docxMainPart)
	}

	w := &docxWalker{pkg: pkg, rels: rels, b: document.NewBuilder(source, n.Name())}
	if err := w.walk(ctx, body); err != nil {
		return nil, err
	}
	return w.b.Sequence(), nil
}

type docxWalker struct {
	pkg        *container
	rels       map[string]string
	b          *document.Builder
	paragraphs int
	tables     int
}

func (w *docxWalker) walk(ctx context.Context, parent *xmlquery.Node) error {
	for child := parent.FirstChild; child != nil; child = child.NextSibling {
		if err := ctx.Err(); err != nil {
			return err
		}
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch child.Data {
		case "p":
			w.paragraph(child)
		case "tbl":
			w.table(child)
		case "sdt":
			for _, content := range elements(child, "sdtContent") {
				if err := w.walk(ctx, content); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *docxWalker) paragraph(p *xmlquery.Node) {
	w.paragraphs++
	ref := fmt.Sprintf("paragraph %d", w.paragraphs)
	w.b.Add(document.Paragraph, textOf(p), ref)
	for _, blip := range xmlquery.QuerySelectorAll(p, exprBlip) {
		w.image(blip, ref)
	}
}

func (w *docxWalker) image(blip *xmlquery.Node, ref string) {
	id := attr(blip, "embed")
	if id == "" {
		return
	}
	part, ok := w.rels[id]
	if !ok {
		w.b.Add(document.Image, document.ImageReference(id), ref+" / "+id)
		return
	}
	data, err := w.pkg.read(part)
	if err != nil {
		w.b.Add(document.Image, document.ImageReference(part), part)
		return
	}
	w.b.Add(document.Image, document.ImageIdentity(data), part)
}

func (w *docxWalker) table(tbl *xmlquery.Node) {
	w.tables++
	for r, row := range elements(tbl, "tr") {
		for c, cell := range elements(row, "tc") {
			var parts []string
			for _, p := range elements(cell, "p") {
				parts = append(parts, textOf(p))
			}
			w.b.Add(document.TableCell, strings.Join(parts, " "),
				fmt.Sprintf("table %d / row %d / col %d", w.tables, r+1, c+1))
		}
	}
}

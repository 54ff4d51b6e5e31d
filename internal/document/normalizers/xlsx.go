// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/gemaraproj/docdiff/internal/document"
)

const xlsxWorkbookPart = "xl/workbook.xml"

var (
	exprSheet      = xpath.MustCompile("//*[local-name()='sheets']/*[local-name()='sheet']")
	exprSharedItem = xpath.MustCompile("//*[local-name()='si']")
	exprCell       = xpath.MustCompile("//*[local-name()='sheetData']/*[local-name()='row']/*[local-name()='c']")
	exprValue      = xpath.MustCompile("./*[local-name()='v']")
	exprInline     = xpath.MustCompile("./*[local-name()='is']")
)

// XlsxNormalizer reads SpreadsheetML packages. Every non-empty cell of every
// worksheet becomes a table_cell unit referenced as Sheet!A1.
type XlsxNormalizer struct{}

func NewXlsxNormalizer() *XlsxNormalizer {
	return &XlsxNormalizer{}
}

func (n *XlsxNormalizer) Name() string {
	return "xlsx"
}

func (n *XlsxNormalizer) CanHandle(source document.Source) bool {
	switch strings.ToLower(source.Format) {
	case "xlsx":
		return true
	case "":
		return hasPart(source.Content, xlsxWorkbookPart)
	}
	return false
}

func (n *XlsxNormalizer) Normalize(ctx context.Context, source document.Source) (*document.Sequence, error) {
	pkg, err := openContainer(source.Content)
	if err != nil {
		return nil, err
	}
	workbook, err := pkg.parseXML(xlsxWorkbookPart)
	if err != nil {
		return nil, err
	}
	rels, err := pkg.relationships("xl/_rels/workbook.xml.rels", "xl")
	if err != nil {
		return nil, err
	}
	shared, err := sharedStrings(pkg)
	if err != nil {
		return nil, err
	}

	b := document.NewBuilder(source, n.Name())
	for i, sheet := range xmlquery.QuerySelectorAll(workbook, exprSheet) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := attr(sheet, "name")
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		part, ok := rels[attr(sheet, "id")]
		if !ok {
			part = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		root, err := pkg.parseXML(part)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		for _, cell := range xmlquery.QuerySelectorAll(root, exprCell) {
			value, err := cellValue(cell, shared)
			if err != nil {
				return nil, fmt.Errorf("sheet %q cell %s: %w", name, attr(cell, "r"), err)
			}
			b.Add(document.TableCell, value, name+"!"+attr(cell, "r"))
		}
	}
	return b.Sequence(), nil
}

func sharedStrings(pkg *container) ([]string, error) {
	const part = "xl/sharedStrings.xml"
	if _, ok := pkg.files[part]; !ok {
		return nil, nil
	}
	root, err := pkg.parseXML(part)
	if err != nil {
		return nil, err
	}
	items := xmlquery.QuerySelectorAll(root, exprSharedItem)
	out := make([]string, len(items))
	for i, si := range items {
		out[i] = textOf(si)
	}
	return out, nil
}

func cellValue(cell *xmlquery.Node, shared []string) (string, error) {
	var raw string
	if v := xmlquery.QuerySelector(cell, exprValue); v != nil {
		raw = v.InnerText()
	}
	switch attr(cell, "t") {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(shared) {
			return "", fmt.Errorf("invalid shared string index %q", raw)
		}
		return shared[idx], nil
	case "inlineStr":
		if is := xmlquery.QuerySelector(cell, exprInline); is != nil {
			return textOf(is), nil
		}
		return "", nil
	case "b":
		if raw == "" {
			return "", nil
		}
		if strings.TrimSpace(raw) == "1" {
			return "TRUE", nil
		}
		return "FALSE", nil
	}
	return raw, nil
}

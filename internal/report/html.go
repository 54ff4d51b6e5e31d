// SPDX-License-Identifier: Apache-2.0

package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document"
)

//go:embed templates/report.html.tmpl
var reportTemplate string

// tocLimit caps the number of table of contents links.
const tocLimit = 200

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": func(t document.UnitType) string { return strings.ToUpper(string(t)) },
	"join":  strings.Join,
	"score": func(v *float64) string { return fmt.Sprintf("%.2f", *v) },
	"text": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"level": func(s float64) string {
		switch {
		case s < 3:
			return "low"
		case s < 6:
			return "med"
		}
		return "high"
	},
}).Parse(reportTemplate))

type htmlView struct {
	Title     string
	OldSource string
	NewSource string
	Model     *Model
	Kinds     []diff.ChangeKind
	TOC       []Entry
}

// RenderHTML writes the interactive HTML report for m.
func RenderHTML(w io.Writer, m *Model) error {
	view := htmlView{
		Title:     "Document Comparison Report",
		OldSource: m.OldSource,
		NewSource: m.NewSource,
		Model:     m,
		Kinds:     diff.ChangeKinds(),
	}
	for i, idx := range m.TOC {
		if i == tocLimit {
			break
		}
		view.TOC = append(view.TOC, m.Entries[idx])
	}
	if err := htmlTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

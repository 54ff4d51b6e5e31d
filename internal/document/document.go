// SPDX-License-Identifier: Apache-2.0

package document

import "context"

// UnitType tags a structural unit. The set is closed; new block kinds are added here.
type UnitType string

const (
	Paragraph UnitType = "paragraph"
	TableCell UnitType = "table_cell"
	Image     UnitType = "image"
)

// Valid reports whether t is one of the known unit types.
func (t UnitType) Valid() bool {
	switch t {
	case Paragraph, TableCell, Image:
		return true
	}
	return false
}

// UnitTypes lists every unit type in presentation order.
func UnitTypes() []UnitType {
	return []UnitType{Paragraph, TableCell, Image}
}

// Unit is one structural block of a document revision.
type Unit struct {
	// ID is the position of the unit in its sequence. It plays no part in matching.
	ID   int      `json:"id"`
	Type UnitType `json:"type"`
	// Text is the normalized content. Image units carry a content identity instead.
	Text string `json:"text"`
	// Ref points back to the original block (section, cell address, media part).
	Ref string `json:"ref,omitempty"`
}

// Key is the matching identity of the unit.
func (u Unit) Key() string {
	return string(u.Type) + "\x00" + u.Text
}

// Sequence is the ordered list of units produced for one document revision.
type Sequence struct {
	Source string
	Format string
	Units  []Unit
}

// Len returns the number of units, treating a nil sequence as empty.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Units)
}

// Source describes the raw input to the normalization pipeline.
type Source struct {
	// Path is used for error reporting and unit references.
	Path    string
	Content []byte
	// Format is an optional hint (txt, markdown, yaml, docx, xlsx).
	Format string
}

type Normalizer interface {
	CanHandle(source Source) bool
	Normalize(ctx context.Context, source Source) (*Sequence, error)
	Name() string
}

// Builder accumulates units and assigns sequential IDs.
type Builder struct {
	seq *Sequence
}

// NewBuilder starts a sequence for the given source.
func NewBuilder(source Source, format string) *Builder {
	return &Builder{seq: &Sequence{Source: source.Path, Format: format, Units: []Unit{}}}
}

// Add appends a unit after normalizing its text. Empty text is skipped for
// paragraphs and table cells.
func (b *Builder) Add(typ UnitType, text, ref string) {
	if typ != Image {
		text = NormalizeText(text)
		if text == "" {
			return
		}
	}
	b.seq.Units = append(b.seq.Units, Unit{
		ID:   len(b.seq.Units),
		Type: typ,
		Text: text,
		Ref:  ref,
	})
}

// Sequence returns the built sequence.
func (b *Builder) Sequence() *Sequence {
	return b.seq
}

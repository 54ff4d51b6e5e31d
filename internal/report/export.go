// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/gemaraproj/docdiff/internal/diff"
	"github.com/gemaraproj/docdiff/internal/document"
)

// ExportVersion is bumped whenever the export changes incompatibly.
const ExportVersion = 1

// Export is the machine-facing report. Its field names and the kind values
// are a stable contract.
type Export struct {
	Version  int             `json:"version"`
	Summary  ExportSummary   `json:"summary"`
	Records  []ExportRecord  `json:"records"`
	Groups   []ExportGroup   `json:"groups"`
	Clusters []ExportCluster `json:"clusters"`
	TOC      []int           `json:"toc"`
}

type ExportSummary struct {
	Counts
	Degraded             int               `json:"degraded"`
	AverageModifiedScore *float64          `json:"average_modified_score" jsonschema:"nullable"`
	ByType               map[string]Counts `json:"by_type"`
	DominantCategory     diff.Category     `json:"dominant_category,omitempty"`
	Labels               []string          `json:"labels"`
	Text                 string            `json:"text"`
}

type ExportRecord struct {
	Kind            diff.ChangeKind   `json:"kind"`
	BlockType       document.UnitType `json:"block_type"`
	OldText         *string           `json:"old_text" jsonschema:"nullable"`
	NewText         *string           `json:"new_text" jsonschema:"nullable"`
	SimilarityScore *float64          `json:"similarity_score" jsonschema:"nullable"`
	EntityLabels    []ExportEntity    `json:"entity_labels"`
	Degraded        bool              `json:"degraded"`
	Category        diff.Category     `json:"category,omitempty"`
	Ref             string            `json:"ref,omitempty"`
	Significance    float64           `json:"significance"`
	Cluster         int               `json:"cluster,omitempty"`
}

type ExportEntity struct {
	Label string `json:"label"`
	Span  string `json:"span"`
}

type ExportGroup struct {
	BlockType document.UnitType `json:"block_type"`
	Kind      diff.ChangeKind   `json:"kind"`
	Records   []int             `json:"records"`
}

// ExportCluster lists record indices of related modifications.
type ExportCluster struct {
	ID      int      `json:"id"`
	Records []int    `json:"records"`
	Labels  []string `json:"labels"`
}

// NewExport converts a model into its export form.
func NewExport(m *Model) Export {
	out := Export{
		Version: ExportVersion,
		Summary: ExportSummary{
			Counts:               m.Counts,
			Degraded:             m.Degraded,
			AverageModifiedScore: m.AverageModifiedScore,
			ByType:               make(map[string]Counts, len(m.ByType)),
			DominantCategory:     m.DominantCategory,
			Labels:               m.Labels,
			Text:                 m.Summary,
		},
		Records:  make([]ExportRecord, 0, len(m.Entries)),
		Groups:   make([]ExportGroup, 0, len(m.Groups)),
		Clusters: make([]ExportCluster, 0, len(m.Clusters)),
		TOC:      m.TOC,
	}
	for _, tc := range m.ByType {
		out.Summary.ByType[string(tc.Type)] = tc.Counts
	}
	for _, e := range m.Entries {
		entities := make([]ExportEntity, 0, len(e.Entities))
		for _, ent := range e.Entities {
			entities = append(entities, ExportEntity{Label: ent.Label, Span: ent.Span})
		}
		out.Records = append(out.Records, ExportRecord{
			Kind:            e.Kind,
			BlockType:       e.Type,
			OldText:         e.OldText,
			NewText:         e.NewText,
			SimilarityScore: e.Score,
			EntityLabels:    entities,
			Degraded:        e.Degraded,
			Category:        e.Category,
			Ref:             e.Ref,
			Significance:    e.Significance,
			Cluster:         e.Cluster,
		})
	}
	for _, g := range m.Groups {
		out.Groups = append(out.Groups, ExportGroup{BlockType: g.Type, Kind: g.Kind, Records: g.Entries})
	}
	for _, c := range m.Clusters {
		out.Clusters = append(out.Clusters, ExportCluster{ID: c.ID, Records: c.Entries, Labels: c.Labels})
	}
	return out
}

// RenderJSON writes the export of m as indented JSON.
func RenderJSON(w io.Writer, m *Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewExport(m)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ExportSchema returns the JSON Schema describing the export.
func ExportSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper:                    enumMapper,
	}
	schema := reflector.Reflect(&Export{})
	schema.ID = ""
	schema.Title = "docdiff report"
	schema.Description = "Change records produced by comparing two document revisions"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return out, nil
}

// enumMapper pins the closed string types to their allowed values.
func enumMapper(t reflect.Type) *jsonschema.Schema {
	var values []string
	switch t {
	case reflect.TypeFor[diff.ChangeKind]():
		for _, k := range diff.ChangeKinds() {
			values = append(values, string(k))
		}
	case reflect.TypeFor[diff.Category]():
		values = []string{
			string(diff.Substantive), string(diff.Technical),
			string(diff.Editorial), string(diff.Formal),
		}
	case reflect.TypeFor[document.UnitType]():
		for _, u := range document.UnitTypes() {
			values = append(values, string(u))
		}
	default:
		return nil
	}
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

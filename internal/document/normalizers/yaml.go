// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gemaraproj/docdiff/internal/document"
	"github.com/goccy/go-yaml"
)

// YAMLNormalizer turns YAML and JSON documents into one paragraph per
// top-level key, keeping the key order of the document.
type YAMLNormalizer struct{}

func NewYAMLNormalizer() *YAMLNormalizer {
	return &YAMLNormalizer{}
}

func (n *YAMLNormalizer) Name() string {
	return "yaml"
}

// yamlKeyLine matches a line of the form "key:" with no spaces in the key.
var yamlKeyLine = regexp.MustCompile(`^[A-Za-z0-9_.-]+:(\s|$)`)

// CanHandle accepts the yaml, yml and json hints. Unhinted content is taken
// when it is a JSON object or its top level consists of "key:" lines, and it
// decodes as a mapping. Prose such as "Note: see below" goes to the text
// normalizer.
func (n *YAMLNormalizer) CanHandle(source document.Source) bool {
	switch strings.ToLower(source.Format) {
	case "yaml", "yml", "json":
		return true
	case "":
	default:
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	if content == "" {
		return false
	}
	if content[0] != '{' && !topLevelKeys(content) {
		return false
	}
	var doc yaml.MapSlice
	return yaml.Unmarshal(source.Content, &doc) == nil && len(doc) > 0
}

// topLevelKeys reports whether every unindented line is a "key:" line, a
// comment or a document marker.
func topLevelKeys(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' || line == "---" {
			continue
		}
		if !yamlKeyLine.MatchString(line) {
			return false
		}
	}
	return true
}

func (n *YAMLNormalizer) Normalize(_ context.Context, source document.Source) (*document.Sequence, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(source.Content, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	b := document.NewBuilder(source, n.Name())
	for _, item := range doc {
		key := fmt.Sprintf("%v", item.Key)
		rendered, err := yaml.Marshal(item.Value)
		if err != nil {
			rendered = []byte(fmt.Sprintf("%v", item.Value))
		}
		b.Add(document.Paragraph, fmt.Sprintf("%s: %s", key, strings.TrimSpace(string(rendered))), key)
	}
	return b.Sequence(), nil
}

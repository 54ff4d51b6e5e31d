// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/gemaraproj/docdiff/internal/document"
)

// TextNormalizer turns plain text into one paragraph per non-empty line.
type TextNormalizer struct{}

func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{}
}

func (n *TextNormalizer) Name() string {
	return "txt"
}

// CanHandle accepts the "txt" hint, or unhinted content that is valid UTF-8 without NUL bytes.
func (n *TextNormalizer) CanHandle(source document.Source) bool {
	switch strings.ToLower(source.Format) {
	case "txt", "text":
		return true
	case "":
		return utf8.Valid(source.Content) && !bytes.ContainsRune(source.Content, 0)
	}
	return false
}

func (n *TextNormalizer) Normalize(_ context.Context, source document.Source) (*document.Sequence, error) {
	b := document.NewBuilder(source, n.Name())
	for i, line := range strings.Split(decodeText(source.Content), "\n") {
		b.Add(document.Paragraph, line, fmt.Sprintf("line %d", i+1))
	}
	return b.Sequence(), nil
}

// decodeText returns UTF-8 content unchanged. Anything else is read as
// Windows-1250, the usual legacy encoding of Central European text, with
// unmapped bytes replaced by U+FFFD.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "\uFFFD")
	}
	return string(decoded)
}

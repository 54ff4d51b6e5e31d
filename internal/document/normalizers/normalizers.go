// SPDX-License-Identifier: Apache-2.0

// Package normalizers holds the format adapters that turn document bytes into
// structural unit sequences.
package normalizers

import "github.com/gemaraproj/docdiff/internal/document"

// DefaultPipeline builds a Pipeline with all normalizers registered.
// Order matters: container formats (docx, xlsx) are sniffed before the text
// formats, and plain text is the last resort for unhinted content.
func DefaultPipeline() *document.Pipeline {
	return document.NewPipeline(
		NewDocxNormalizer(),
		NewXlsxNormalizer(),
		NewMarkdownNormalizer(),
		NewYAMLNormalizer(),
		NewTextNormalizer(),
	)
}

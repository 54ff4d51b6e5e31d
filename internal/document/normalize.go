// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC, drops control characters and collapses whitespace.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// ImageIdentity returns the unit text for embedded image bytes.
func ImageIdentity(data []byte) string {
	sum := blake3.Sum256(data)
	return "image:" + hex.EncodeToString(sum[:])
}

// ImageReference returns the unit text for an image known only by reference.
func ImageReference(ref string) string {
	return "image:" + strings.TrimSpace(ref)
}

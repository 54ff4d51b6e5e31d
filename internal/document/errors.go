// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates no normalizer accepts the document.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrParse indicates a corrupt or unreadable document.
	ErrParse = errors.New("parse error")
)

// UnsupportedFormatError is returned when no registered normalizer can handle a source.
type UnsupportedFormatError struct {
	Path   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s: unsupported document format %q", e.Path, e.Format)
	}
	return fmt.Sprintf("%s: unsupported document format", e.Path)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// ParseError wraps a normalizer failure for a specific document.
type ParseError struct {
	Path       string
	Normalizer string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Cause())
}

// Cause returns a short description of what went wrong.
func (e *ParseError) Cause() string {
	if e.Err == nil {
		return "corrupt document"
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

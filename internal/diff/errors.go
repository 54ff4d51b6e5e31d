// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates invalid input to the diff engine.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError names the offending input.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

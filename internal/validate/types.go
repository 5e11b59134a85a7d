// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevels lists the accepted log levels, most verbose first.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ParseLogLevel maps a configured level name to its zerolog level.
// Matching ignores case and surrounding whitespace.
func ParseLogLevel(s string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(LogLevels, name) {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q (one of %s)", s, strings.Join(LogLevels, ", "))
	}
	return zerolog.ParseLevel(name)
}

// LogLevel records an error when value is not one of LogLevels.
func (v *Validator) LogLevel(field, value string) {
	if _, err := ParseLogLevel(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}

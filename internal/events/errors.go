// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"errors"
	"fmt"
)

// ErrParse classifies every batch decoding failure. Use errors.Is(err, ErrParse).
var ErrParse = errors.New("malformed update batch")

// ParseError describes why a payload could not be decoded into a Batch.
type ParseError struct {
	// Index is the position in "posts" of the offending element, or -1 for envelope-level failures.
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse batch"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: posts[%d]", msg, e.Index)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, e.Field)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

func envelopeError(field, reason string, err error) *ParseError {
	return &ParseError{Index: -1, Field: field, Reason: reason, Err: err}
}

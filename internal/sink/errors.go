// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"errors"
	"fmt"
)

// ErrStorage classifies every sink failure. Use errors.Is(err, ErrStorage).
var ErrStorage = errors.New("storage failure")

// Operation names reported in StorageError.
const (
	OpAppend   = "append"
	OpTruncate = "truncate"
	OpPolicy   = "policy"
	OpRead     = "read"
)

// StorageError wraps a failed sink operation.
type StorageError struct {
	Sink string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("sink %s: %s", e.Sink, e.Op)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

func storageErr(name, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Sink: name, Op: op, Err: err}
}

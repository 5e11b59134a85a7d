// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package dump stores the raw body of a post as a single replaceable artifact.
package dump

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/google/renameio/v2"
)

// SinkName identifies the dump artifact in errors and metrics.
const SinkName = "dump"

// Dumper writes raw bytes verbatim. No parsing, batching or reset semantics apply.
type Dumper struct {
	path   string
	policy sink.AccessPolicy
	mu     sync.Mutex
}

// New returns a dumper for the artifact at path.
func New(path string, policy sink.AccessPolicy) *Dumper {
	return &Dumper{path: path, policy: policy}
}

// Path returns the artifact path.
func (d *Dumper) Path() string { return d.path }

// Replace discards any previous artifact, stores data and applies the access policy.
// The new content becomes visible atomically.
func (d *Dumper) Replace(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &sink.StorageError{Sink: SinkName, Op: sink.OpAppend, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	pending, err := renameio.NewPendingFile(d.path, renameio.WithPermissions(d.policy.EffectiveMode()))
	if err != nil {
		return &sink.StorageError{Sink: SinkName, Op: sink.OpAppend, Err: err}
	}
	defer func() {
		// no-op once committed
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(data); err != nil {
		return &sink.StorageError{Sink: SinkName, Op: sink.OpAppend, Err: err}
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return &sink.StorageError{Sink: SinkName, Op: sink.OpAppend, Err: err}
	}

	if err := sink.ApplyFilePolicy(d.path, d.policy); err != nil {
		return &sink.StorageError{Sink: SinkName, Op: sink.OpPolicy, Err: err}
	}
	return nil
}

// Read returns the artifact content. ok is false when no artifact exists.
func (d *Dumper) Read(ctx context.Context) (data []byte, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &sink.StorageError{Sink: SinkName, Op: sink.OpRead, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err = os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &sink.StorageError{Sink: SinkName, Op: sink.OpRead, Err: err}
	}
	return data, true, nil
}

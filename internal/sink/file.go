// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
)

// FileSink stores its content in a flat file.
type FileSink struct {
	name string
	path string
	mu   sync.Mutex
}

// NewFileSink returns a sink backed by the file at path. The file is created on first write.
func NewFileSink(name, path string) *FileSink {
	return &FileSink{name: name, path: path}
}

func (s *FileSink) Name() string { return s.name }

// Path returns the backing file path.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Append(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpAppend, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- sink paths come from operator configuration
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, DefaultMode)
	if err != nil {
		return storageErr(s.name, OpAppend, err)
	}
	if _, err := f.Write(p); err != nil {
		_ = f.Close()
		return storageErr(s.name, OpAppend, err)
	}
	return storageErr(s.name, OpAppend, f.Close())
}

func (s *FileSink) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpTruncate, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Truncate(s.path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr(s.name, OpTruncate, err)
	}
	return nil
}

func (s *FileSink) ApplyPolicy(ctx context.Context, policy AccessPolicy) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpPolicy, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return storageErr(s.name, OpPolicy, ApplyFilePolicy(s.path, policy))
}

func (s *FileSink) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr(s.name, OpRead, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, storageErr(s.name, OpRead, err)
	}
	return data, nil
}

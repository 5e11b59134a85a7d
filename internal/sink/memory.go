// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"sync"
)

// MemorySink keeps its content in process memory. Content is lost on restart.
type MemorySink struct {
	name string

	mu          sync.Mutex
	data        []byte
	policy      *AccessPolicy
	policyCount int
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink(name string) *MemorySink {
	return &MemorySink{name: name}
}

func (s *MemorySink) Name() string { return s.name }

func (s *MemorySink) Append(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpAppend, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	return nil
}

func (s *MemorySink) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpTruncate, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

func (s *MemorySink) ApplyPolicy(ctx context.Context, policy AccessPolicy) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpPolicy, err)
	}
	if _, err := policy.ResolveGID(); err != nil {
		return storageErr(s.name, OpPolicy, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := policy
	s.policy = &p
	s.policyCount++
	return nil
}

func (s *MemorySink) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr(s.name, OpRead, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Policy returns the last applied policy and how many times a policy was applied.
func (s *MemorySink) Policy() (AccessPolicy, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy == nil {
		return AccessPolicy{}, s.policyCount, false
	}
	return *s.policy, s.policyCount, true
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sink implements the append-only, truncatable byte stores that back
// the text and JSON update logs.
package sink

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
)

// DefaultMode grants read and write to owner and group, nothing to others.
const DefaultMode os.FileMode = 0o660

// Sink is a named durable byte store.
//
// Implementations serialize their own operations so that bytes from
// concurrent Append calls never interleave. Nothing is guaranteed across
// two different sinks.
type Sink interface {
	// Name returns the logical name of the store.
	Name() string
	// Append adds p to the end of the store in a single write.
	Append(ctx context.Context, p []byte) error
	// Truncate empties the store. Truncating a missing or empty store is a no-op.
	Truncate(ctx context.Context) error
	// ApplyPolicy sets the owning group and permission bits of the store.
	ApplyPolicy(ctx context.Context, policy AccessPolicy) error
	// ReadAll returns the current content of the store.
	ReadAll(ctx context.Context) ([]byte, error)
}

// AccessPolicy is applied to every written artifact.
type AccessPolicy struct {
	// Group is a group name or numeric gid. Empty means the effective gid of the process.
	Group string
	// Mode is masked to DefaultMode. Zero means DefaultMode.
	Mode os.FileMode
}

// EffectiveMode returns the permission bits actually applied.
func (p AccessPolicy) EffectiveMode() os.FileMode {
	if p.Mode == 0 {
		return DefaultMode
	}
	return p.Mode & DefaultMode
}

// ResolveGID maps the policy group to a numeric gid.
func (p AccessPolicy) ResolveGID() (int, error) {
	group := strings.TrimSpace(p.Group)
	if group == "" {
		return os.Getegid(), nil
	}
	if gid, err := strconv.Atoi(group); err == nil {
		if gid < 0 {
			return 0, fmt.Errorf("invalid gid %d", gid)
		}
		return gid, nil
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, fmt.Errorf("lookup group %q: %w", group, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("group %q has non-numeric gid %q", group, g.Gid)
	}
	return gid, nil
}

// ApplyFilePolicy sets group and mode on path, creating an empty file when it does not exist yet.
func ApplyFilePolicy(path string, policy AccessPolicy) error {
	gid, err := policy.ResolveGID()
	if err != nil {
		return err
	}
	mode := policy.EffectiveMode()

	// #nosec G304 -- sink paths come from operator configuration
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, mode)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Chown(-1, gid); err != nil {
		return err
	}
	return f.Chmod(mode)
}

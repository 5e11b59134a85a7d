// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/updatesink/internal/persistence/sqlite"
)

// Backend selects the storage implementation of the sink pair.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// SQLiteFileName is the database file created under Options.Dir by the sqlite backend.
const SQLiteFileName = "sinks.sqlite"

// Options configures OpenPair.
type Options struct {
	Backend  Backend
	Dir      string
	TextName string
	JSONName string
	SQLite   sqlite.Config
}

// Pair is the text and JSON sink used by the aggregator.
type Pair struct {
	Text Sink
	JSON Sink

	// SQLite is set for the sqlite backend.
	SQLite *SQLiteStore
}

// OpenPair builds both sinks for the configured backend.
func OpenPair(ctx context.Context, opts Options) (*Pair, error) {
	if opts.TextName == "" || opts.JSONName == "" {
		return nil, fmt.Errorf("sink names must not be empty")
	}
	if opts.TextName == opts.JSONName {
		return nil, fmt.Errorf("text and json sink share the name %q", opts.TextName)
	}

	switch opts.Backend {
	case BackendMemory:
		return &Pair{Text: NewMemorySink(opts.TextName), JSON: NewMemorySink(opts.JSONName)}, nil
	case BackendFile, "":
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return &Pair{
			Text: NewFileSink(opts.TextName, filepath.Join(opts.Dir, opts.TextName)),
			JSON: NewFileSink(opts.JSONName, filepath.Join(opts.Dir, opts.JSONName)),
		}, nil
	case BackendSQLite:
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		cfg := opts.SQLite
		if cfg.BusyTimeout == 0 {
			cfg = sqlite.DefaultConfig()
		}
		st, err := OpenSQLiteStore(ctx, filepath.Join(opts.Dir, SQLiteFileName), cfg)
		if err != nil {
			return nil, err
		}
		return &Pair{Text: st.Sink(opts.TextName), JSON: st.Sink(opts.JSONName), SQLite: st}, nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", opts.Backend)
	}
}

// Close releases backend resources.
func (p *Pair) Close() error {
	if p.SQLite != nil {
		return p.SQLite.Close()
	}
	return nil
}

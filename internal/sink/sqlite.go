// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ManuGH/updatesink/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sink_chunks (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	sink TEXT NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sink_chunks_sink ON sink_chunks(sink, seq);
`

// SQLiteStore holds several logical sinks in one database file.
// Each Append is one row; content is the concatenation of a sink's rows in insertion order.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the schema exists.
func OpenSQLiteStore(ctx context.Context, path string, cfg sqlite.Config) (*SQLiteStore, error) {
	db, err := sqlite.Open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Sink returns the logical sink called name.
func (st *SQLiteStore) Sink(name string) *SQLiteSink {
	return &SQLiteSink{name: name, store: st}
}

// DB exposes the underlying pool for health checks.
func (st *SQLiteStore) DB() *sql.DB { return st.db }

// Path returns the database file path.
func (st *SQLiteStore) Path() string { return st.path }

// Close releases the database.
func (st *SQLiteStore) Close() error { return st.db.Close() }

// applyPolicy applies the policy to the database file and its WAL side files.
func (st *SQLiteStore) applyPolicy(policy AccessPolicy) error {
	if err := ApplyFilePolicy(st.path, policy); err != nil {
		return err
	}
	gid, err := policy.ResolveGID()
	if err != nil {
		return err
	}
	for _, side := range []string{st.path + "-wal", st.path + "-shm"} {
		if _, err := os.Stat(side); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.Chown(side, -1, gid); err != nil {
			return err
		}
		if err := os.Chmod(side, policy.EffectiveMode()); err != nil {
			return err
		}
	}
	return nil
}

// SQLiteSink is one logical sink inside a SQLiteStore.
type SQLiteSink struct {
	name  string
	store *SQLiteStore
}

func (s *SQLiteSink) Name() string { return s.name }

func (s *SQLiteSink) Append(ctx context.Context, p []byte) error {
	if p == nil {
		p = []byte{}
	}
	_, err := s.store.db.ExecContext(ctx, "INSERT INTO sink_chunks (sink, data) VALUES (?, ?)", s.name, p)
	return storageErr(s.name, OpAppend, err)
}

func (s *SQLiteSink) Truncate(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sink_chunks WHERE sink = ?", s.name)
	return storageErr(s.name, OpTruncate, err)
}

func (s *SQLiteSink) ApplyPolicy(ctx context.Context, policy AccessPolicy) error {
	if err := ctx.Err(); err != nil {
		return storageErr(s.name, OpPolicy, err)
	}
	return storageErr(s.name, OpPolicy, s.store.applyPolicy(policy))
}

func (s *SQLiteSink) ReadAll(ctx context.Context) ([]byte, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT data FROM sink_chunks WHERE sink = ? ORDER BY seq", s.name)
	if err != nil {
		return nil, storageErr(s.name, OpRead, err)
	}
	defer rows.Close()

	out := []byte{}
	for rows.Next() {
		var chunk []byte
		if err := rows.Scan(&chunk); err != nil {
			return nil, storageErr(s.name, OpRead, err)
		}
		out = append(out, chunk...)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(s.name, OpRead, err)
	}
	return out, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/updatesink/internal/persistence/sqlite"
)

// DirChecker reports whether the data directory accepts writes.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a writability checker for path.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}
	if err := checkWritable(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// FileChecker reports on an optional artifact. A missing file is healthy
// because artifacts are created by the first write.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for an artifact path.
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: filepath.Clean(path)}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusHealthy, Message: "not yet written"}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d bytes", info.Size())}
}

// SQLiteChecker runs a quick integrity check against the sink database.
type SQLiteChecker struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLiteChecker creates a checker for db. Each check is bounded by timeout.
func NewSQLiteChecker(db *sql.DB, timeout time.Duration) *SQLiteChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SQLiteChecker{db: db, timeout: timeout}
}

func (c *SQLiteChecker) Name() string { return "sqlite" }

func (c *SQLiteChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	problems, err := sqlite.VerifyIntegrity(ctx, c.db, "quick")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(problems) > 0 {
		return CheckResult{Status: StatusUnhealthy, Error: "integrity check failed", Message: strings.Join(problems, "; ")}
	}
	return CheckResult{Status: StatusHealthy, Message: "integrity ok"}
}

// LastBatchChecker reports the outcome of the most recent update batch.
// A failed write degrades the receiver; it stays ready so the harness can retry.
type LastBatchChecker struct {
	getLastBatch func() (time.Time, string)
}

// NewLastBatchChecker creates a checker fed by getLastBatch, which returns the
// time of the last batch and its error text ("" on success).
func NewLastBatchChecker(getLastBatch func() (time.Time, string)) *LastBatchChecker {
	return &LastBatchChecker{getLastBatch: getLastBatch}
}

func (c *LastBatchChecker) Name() string { return "last_batch" }

func (c *LastBatchChecker) Check(_ context.Context) CheckResult {
	at, lastErr := c.getLastBatch()
	if at.IsZero() {
		return CheckResult{Status: StatusHealthy, Message: "no batch received yet"}
	}
	if lastErr != "" {
		return CheckResult{Status: StatusDegraded, Error: lastErr, Message: "last batch was not persisted"}
	}
	return CheckResult{Status: StatusHealthy, Message: "last batch persisted at " + at.UTC().Format(time.RFC3339)}
}

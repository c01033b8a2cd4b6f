package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrSchemaMismatch indicates the stored schema version differs from the code.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// DB wraps a SQLite handle with retry-aware helpers.
type DB struct {
	sql  *sql.DB
	path string
}

// Open connects to (or creates) the database at path and applies pragmas.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
        component TEXT PRIMARY KEY,
        version INTEGER NOT NULL
    )`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema_version: %w", err)
	}
	return &DB{sql: db, path: path}, nil
}

// Path returns the database file location.
func (d *DB) Path() string { return d.path }

// SQL exposes the raw handle for queries that need rows.
func (d *DB) SQL() *sql.DB { return d.sql }

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// EnsureSchema creates a component's tables on first use and verifies the
// recorded version afterwards.
func (d *DB) EnsureSchema(ctx context.Context, component string, version int, ddl string) error {
	ctx = ensureContext(ctx)
	var stored int
	err := d.sql.QueryRowContext(ctx,
		"SELECT version FROM schema_version WHERE component = ?", component,
	).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return d.createSchema(ctx, component, version, ddl)
	case err != nil:
		return fmt.Errorf("read %s schema version: %w", component, err)
	}
	if stored != version {
		return fmt.Errorf("%w: %s has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, component, stored, version, d.path)
	}
	return nil
}

func (d *DB) createSchema(ctx context.Context, component string, version int, ddl string) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s schema: %w", component, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (component, version) VALUES (?, ?)", component, version,
	); err != nil {
		return fmt.Errorf("record %s schema version: %w", component, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s schema: %w", component, err)
	}
	return nil
}

// Exec runs a statement, retrying while SQLite reports busy.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := RetryOnBusy(ctx, func() error {
		res, execErr = d.sql.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Tx runs fn inside a transaction, retrying the whole transaction on busy.
func (d *DB) Tx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return RetryOnBusy(ctx, func() error {
		tx, err := d.sql.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// IsBusy reports whether err is SQLITE_BUSY.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnBusy runs op up to five times with exponential backoff while it
// keeps failing with SQLITE_BUSY.
func RetryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

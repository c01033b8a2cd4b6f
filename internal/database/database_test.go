package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipforge/internal/database"
)

func TestEnsureSchemaCreatesAndVerifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "test.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	ddl := "CREATE TABLE widgets (id TEXT PRIMARY KEY);"
	if err := db.EnsureSchema(ctx, "widgets", 1, ddl); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := db.EnsureSchema(ctx, "widgets", 1, ddl); err != nil {
		t.Fatalf("second EnsureSchema should be a no-op: %v", err)
	}
	if _, err := db.Exec(ctx, "INSERT INTO widgets (id) VALUES (?)", "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := database.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	err = reopened.EnsureSchema(ctx, "widgets", 2, ddl)
	if !errors.Is(err, database.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

type codedErr int

func (c codedErr) Error() string { return "sqlite error" }
func (c codedErr) Code() int     { return int(c) }

func TestRetryOnBusyRetriesOnlyBusyErrors(t *testing.T) {
	attempts := 0
	err := database.RetryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return codedErr(5)
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success after 3 attempts, got err=%v attempts=%d", err, attempts)
	}

	attempts = 0
	sentinel := errors.New("constraint failed")
	err = database.RetryOnBusy(context.Background(), func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) || attempts != 1 {
		t.Fatalf("expected single attempt for non-busy error, got err=%v attempts=%d", err, attempts)
	}
}

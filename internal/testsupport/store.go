package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/database"
	"clipforge/internal/jobs"
)

// MustOpenDB opens the shared SQLite database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenStore opens a SQLite-backed jobs.Store for tests.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...jobs.Option) (*jobs.Store, *database.DB) {
	t.Helper()

	db := MustOpenDB(t, cfg)
	store, err := jobs.NewStore(context.Background(), db, opts...)
	if err != nil {
		t.Fatalf("jobs.NewStore: %v", err)
	}
	return store, db
}

// NewJob creates a queued job directly in the store.
func NewJob(t testing.TB, store *jobs.Store, id, sourcePath string, lengths ...int) jobs.Job {
	t.Helper()

	if len(lengths) == 0 {
		lengths = []int{15}
	}
	job, err := store.Create(context.Background(), &jobs.Job{
		ID:          id,
		UserID:      "anonymous",
		SourceKey:   id + ".mp4",
		SourcePath:  sourcePath,
		ClipLengths: lengths,
		Status:      jobs.StatusQueued,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

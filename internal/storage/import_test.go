package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/services"
)

func TestImportCopiesIntoUserPrefix(t *testing.T) {
	now := time.Now()
	local := newLocal(t, &now)
	src := filepath.Join(t.TempDir(), "My Talk: Part 1?.mp4")
	if err := os.WriteFile(src, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	key, err := local.Import(src, "Alice@Example")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if key != "alice_example/My Talk- Part 1.mp4" {
		t.Fatalf("unexpected key %q", key)
	}
	path, err := local.Resolve(key)
	if err != nil {
		t.Fatalf("Resolve imported key: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "video bytes" {
		t.Fatalf("imported content = %q, %v", data, err)
	}

	if _, err := local.Import(src, "Alice@Example"); services.KindOf(err) != services.KindValidation {
		t.Fatalf("expected validation error on duplicate key, got %v", err)
	}
}

func TestImportRejectsMissingAndDirectories(t *testing.T) {
	now := time.Now()
	local := newLocal(t, &now)
	if _, err := local.Import(filepath.Join(t.TempDir(), "nope.mp4"), "u1"); services.KindOf(err) != services.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := local.Import(t.TempDir(), "u1"); services.KindOf(err) != services.KindValidation {
		t.Fatalf("expected validation error for directory, got %v", err)
	}
}

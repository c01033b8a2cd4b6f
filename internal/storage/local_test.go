package storage_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/services"
	"clipforge/internal/storage"
)

func newLocal(t *testing.T, now *time.Time) *storage.Local {
	t.Helper()
	root := t.TempDir()
	local, err := storage.NewLocal(storage.Options{
		UploadDir:     filepath.Join(root, "uploads"),
		OutputDir:     filepath.Join(root, "outputs"),
		PublicBaseURL: "http://clips.test/",
		SigningKey:    "k",
		TTL:           time.Hour,
		Now:           func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "uploads", "u1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "uploads", "u1", "talk.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return local
}

func TestResolve(t *testing.T) {
	now := time.Now()
	local := newLocal(t, &now)
	path, err := local.Resolve("u1/talk.mp4")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("uploads", "u1", "talk.mp4")) {
		t.Fatalf("unexpected path %q", path)
	}

	cases := map[string]error{
		"../etc/passwd":   services.ErrValidation,
		"/etc/passwd":     services.ErrValidation,
		"u1/../../secret": services.ErrValidation,
		"u1/missing.mp4":  services.ErrNotFound,
		"u1":              services.ErrValidation,
	}
	for key, want := range cases {
		if _, err := local.Resolve(key); !errors.Is(err, want) {
			t.Fatalf("Resolve(%q) = %v, want %v", key, err, want)
		}
	}
}

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	local := newLocal(t, &now)
	raw, err := local.SignedURL("job-1", "draft.mp4")
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "clips.test" || u.Path != "/files/job-1/draft.mp4" {
		t.Fatalf("unexpected url %q", raw)
	}
	q := u.Query()
	if err := local.Verify("job-1", "draft.mp4", q.Get("expires"), q.Get("sig")); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := local.Verify("job-1", "final.mp4", q.Get("expires"), q.Get("sig")); !errors.Is(err, storage.ErrBadSignature) {
		t.Fatalf("expected tampered name to fail, got %v", err)
	}
	if err := local.Verify("job-1", "draft.mp4", "1800000000", q.Get("sig")); !errors.Is(err, storage.ErrBadSignature) {
		t.Fatalf("expected tampered expiry to fail, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := local.Verify("job-1", "draft.mp4", q.Get("expires"), q.Get("sig")); !errors.Is(err, storage.ErrExpired) {
		t.Fatalf("expected expired link, got %v", err)
	}
}

func TestJobDirRejectsTraversal(t *testing.T) {
	now := time.Now()
	local := newLocal(t, &now)
	dir, err := local.JobDir("job-1")
	if err != nil {
		t.Fatalf("JobDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected job dir to exist: %v", err)
	}
	if _, err := local.JobDir("../x"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := local.OutputPath("job-1", "../final.mp4"); err == nil {
		t.Fatal("expected traversal in name to be rejected")
	}
}

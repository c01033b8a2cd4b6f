package deps

import (
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestCheckModel(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(model, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if s := CheckModel(model); !s.Available {
		t.Fatalf("expected model available, got %#v", s)
	}
	if s := CheckModel(dir); s.Available {
		t.Fatal("directory should not count as a model")
	}
	if s := CheckModel(""); s.Available || s.Detail == "" {
		t.Fatalf("expected unconfigured model detail, got %#v", s)
	}
}

func TestCheckAllReportsMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "clearly-not-present-ffmpeg"
	cfg.Tools.FFprobe = "clearly-not-present-ffprobe"
	cfg.Tools.Whisper = "clearly-not-present-whisper"
	cfg.Tools.WhisperModel = ""

	missing := Missing(CheckAll(&cfg))
	want := []string{"FFmpeg", "FFprobe", "whisper.cpp", "Whisper model"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing[%d] = %q, want %q", i, missing[i], want[i])
		}
	}
}

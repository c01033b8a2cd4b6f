package stage_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"clipforge/internal/stage"
)

func TestLoggerPrefersContextLogger(t *testing.T) {
	var buf bytes.Buffer
	jobLogger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := stage.WithLogger(context.Background(), jobLogger)

	stage.Logger(ctx, nil).Info("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("expected context logger to be used, got %q", buf.String())
	}
}

func TestLoggerFallsBack(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewTextHandler(&buf, nil))
	stage.Logger(context.Background(), fallback).Info("fallback line")
	if !strings.Contains(buf.String(), "fallback line") {
		t.Fatalf("expected fallback logger, got %q", buf.String())
	}
	if stage.Logger(context.Background(), nil) == nil {
		t.Fatal("expected nop logger when no fallback")
	}
}

func TestHealthConstructors(t *testing.T) {
	if h := stage.Healthy("analyzer"); !h.Ready || h.Name != "analyzer" {
		t.Fatalf("unexpected healthy record %+v", h)
	}
	if h := stage.Unhealthy("renderer", "ffmpeg missing"); h.Ready || h.Detail != "ffmpeg missing" {
		t.Fatalf("unexpected unhealthy record %+v", h)
	}
}

package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "rendering_draft", "ffmpeg", "exit status 1", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"rendering_draft", "ffmpeg", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	toolErr := services.Wrap(services.ErrExternalTool, "analyzing", "whisper", "failed", nil)
	cases := []struct {
		name string
		err  error
		want services.ErrorKind
	}{
		{"tool", toolErr, services.KindExternalTool},
		{"validation", services.Wrap(services.ErrValidation, "intake", "", "bad", nil), services.KindValidation},
		{"not found", fmt.Errorf("lookup: %w", services.ErrNotFound), services.KindNotFound},
		{"deadline", fmt.Errorf("%w: %w", context.DeadlineExceeded, toolErr), services.KindTimeout},
		{"context canceled", fmt.Errorf("%w: %w", toolErr, context.Canceled), services.KindCanceled},
		{"marker canceled", services.ErrCanceled, services.KindCanceled},
		{"interrupted", services.ErrInterrupted, services.KindInterrupted},
		{"plain", errors.New("other"), services.KindInternal},
		{"nil", nil, services.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHintIsNeverEmpty(t *testing.T) {
	for _, kind := range []services.ErrorKind{
		services.KindExternalTool, services.KindTimeout, services.KindCanceled, services.KindInternal,
	} {
		if services.Hint(kind) == "" {
			t.Fatalf("expected hint for %s", kind)
		}
	}
}

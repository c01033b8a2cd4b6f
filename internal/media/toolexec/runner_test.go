package toolexec_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	runner := toolexec.NewExecRunner(nil)
	res, err := runner.Run(context.Background(), toolexec.Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" || strings.TrimSpace(string(res.Stderr)) != "err" {
		t.Fatalf("unexpected output stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestExecRunnerMapsExitToExternalTool(t *testing.T) {
	runner := toolexec.NewExecRunner(nil)
	_, err := runner.Run(context.Background(), toolexec.Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}, Stage: "rendering_draft"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected exit code and stderr tail in %q", err)
	}
}

func TestExecRunnerKillsProcessGroupOnCancel(t *testing.T) {
	runner := toolexec.NewExecRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	started := time.Now()
	_, err := runner.Run(ctx, toolexec.Command{Name: "sh", Args: []string{"-c", "sleep 30 & sleep 30"}})
	if services.KindOf(err) != services.KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("cancel took too long: %v", elapsed)
	}
}

func TestExecRunnerReportsTimeout(t *testing.T) {
	runner := toolexec.NewExecRunner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := runner.Run(ctx, toolexec.Command{Name: "sleep", Args: []string{"30"}})
	if services.KindOf(err) != services.KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	runner := toolexec.NewExecRunner(nil)
	_, err := runner.Run(context.Background(), toolexec.Command{Name: "clipforge-definitely-missing"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTailKeepsLastLines(t *testing.T) {
	got := toolexec.Tail([]byte("line one\nline two\nline three\n"), 12)
	if got != "line three" {
		t.Fatalf("unexpected tail %q", got)
	}
}

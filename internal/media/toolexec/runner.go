package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Command describes one tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Stage is used only for error context.
	Stage string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result carries captured output. Stderr is kept whole because ffmpeg
// reports silencedetect results there.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

const (
	defaultTailBytes = 2048
	killGrace        = 2 * time.Second
)

// ExecRunner runs commands as real subprocesses.
type ExecRunner struct {
	Logger    *slog.Logger
	TailBytes int
}

// NewExecRunner returns a runner that logs each invocation at debug level.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecRunner{Logger: logger, TailBytes: defaultTailBytes}
}

// Run starts the command in a new process group and waits for it. Context
// cancellation kills the whole group.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	logging.WithContext(ctx, logger).Debug("tool started",
		logging.String("tool", c.Name),
		logging.String("command", c.String()),
	)
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(started)}
	if err == nil {
		logging.WithContext(ctx, logger).Debug("tool finished",
			logging.String("tool", c.Name),
			logging.Duration("duration", res.Duration),
		)
		return res, nil
	}
	return res, r.classify(ctx, c, res, err)
}

func (r *ExecRunner) classify(ctx context.Context, c Command, res Result, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, c.Stage, c.Name, "stage deadline exceeded", ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return services.Wrap(services.ErrCanceled, c.Stage, c.Name, "canceled", ctx.Err())
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrConfiguration, c.Stage, c.Name, "binary not found in PATH", err)
	}
	tail := Tail(res.Stderr, r.tailBytes())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return services.Wrap(services.ErrExternalTool, c.Stage, c.Name,
			fmt.Sprintf("exit status %d: %s", exitErr.ExitCode(), tail), nil)
	}
	return services.Wrap(services.ErrExternalTool, c.Stage, c.Name, tail, err)
}

func (r *ExecRunner) tailBytes() int {
	if r.TailBytes <= 0 {
		return defaultTailBytes
	}
	return r.TailBytes
}

// Tail returns the last n bytes of output, trimmed and starting on a line
// boundary when possible.
func Tail(output []byte, n int) string {
	text := strings.TrimSpace(string(output))
	if n <= 0 || len(text) <= n {
		return text
	}
	text = text[len(text)-n:]
	if idx := strings.IndexByte(text, '\n'); idx >= 0 && idx < len(text)-1 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}

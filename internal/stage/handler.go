package stage

import (
	"context"
	"log/slog"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare and Execute receive a private working copy of the job; the manager
// commits it once Execute returns nil.
type Handler interface {
	Prepare(context.Context, *jobs.Job) error
	Execute(context.Context, *jobs.Job) error
	HealthCheck(context.Context) Health
}

type loggerKey struct{}

// WithLogger attaches the job-scoped logger for handlers to pick up. Handlers
// are shared across concurrently running jobs, so the logger travels with the
// context instead of living on the handler.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger attached by WithLogger, or fallback.
func Logger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		return logging.NewNop()
	}
	return fallback
}

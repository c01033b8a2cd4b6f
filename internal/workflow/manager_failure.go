package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

var errAlreadyTerminal = errors.New("job already terminal")

// handleStageFailure is the single place a stage error becomes a FAILED
// commit.
func (m *Manager) handleStageFailure(ctx context.Context, run *jobRun, logger *slog.Logger, stageName string, stageErr error) {
	kind, message := m.classifyStageFailure(ctx, run, stageName, stageErr)

	failed, err := m.store.Update(commitContext(ctx), run.jobID, func(j *jobs.Job) error {
		if j.Status.IsTerminal() {
			return errAlreadyTerminal
		}
		j.Fail(kind, message)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errAlreadyTerminal) {
			logger.Error("failed to persist stage failure",
				logging.Error(err),
				logging.String(logging.FieldEventType, "stage_failure_persist_failed"),
				logging.String(logging.FieldErrorHint, "check the state database"),
			)
		}
		return
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.String(logging.FieldErrorHint, services.Hint(kind)),
		logging.String("failed_stage", string(failed.Error.Stage)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	}
	if kind == services.KindCanceled {
		logger.Info("job canceled", logging.Args(attrs...)...)
	} else {
		logger.Error("stage failed", logging.Args(attrs...)...)
	}

	m.setLastJob(failed)
	if kind != services.KindCanceled {
		m.setLastError(stageErr)
		m.notifyFailed(ctx, failed)
	}
}

func (m *Manager) classifyStageFailure(ctx context.Context, run *jobRun, stageName string, stageErr error) (services.ErrorKind, string) {
	switch {
	case run != nil && run.canceled.Load():
		return services.KindCanceled, "canceled by request"
	case m.shuttingDown():
		return services.KindInterrupted, "workflow stopped during " + stageLabel(stageName)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.KindTimeout, fmt.Sprintf("%s timed out", stageLabel(stageName))
	}
	if stageErr == nil {
		return services.KindInternal, stageLabel(stageName) + " failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageLabel(stageName) + " failed"
	}
	return services.KindOf(stageErr), message
}

func (m *Manager) shuttingDown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseCtx != nil && m.baseCtx.Err() != nil
}

func stageLabel(name string) string {
	if name == "" {
		return "workflow"
	}
	return name
}

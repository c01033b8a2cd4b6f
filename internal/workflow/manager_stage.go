package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/stage"
)

var errConcurrentUpdate = errors.New("job changed while its stage was running")

func (m *Manager) executeStage(ctx context.Context, run *jobRun, logger *slog.Logger, stg pipelineStage) error {
	stageCtx, cancel := context.WithTimeout(ctx, stg.timeout)
	defer cancel()
	stageCtx = withStageContext(stageCtx, run.jobID, string(stg.processingStatus), uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, logger).With(logging.String("handler", stg.name))
	stageCtx = stage.WithLogger(stageCtx, stageLogger)

	snapshot, err := m.transitionToProcessing(stageCtx, run.jobID, stg)
	if err != nil {
		stageLogger.Error("failed to transition job to processing",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stage_transition_failed"),
			logging.String(logging.FieldErrorHint, "check the state database"),
		)
		m.setLastError(err)
		m.handleStageFailure(stageCtx, run, stageLogger, stg.name, err)
		return err
	}

	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("source_file", snapshot.SourcePath),
		logging.Duration("timeout", stg.timeout),
	)

	work := snapshot.Clone()
	if err := stg.handler.Prepare(stageCtx, work); err != nil {
		m.handleStageFailure(stageCtx, run, stageLogger, stg.name, err)
		return err
	}
	if err := stg.handler.Execute(stageCtx, work); err != nil {
		m.handleStageFailure(stageCtx, run, stageLogger, stg.name, err)
		return err
	}
	if err := stageCtx.Err(); err != nil {
		m.handleStageFailure(stageCtx, run, stageLogger, stg.name, err)
		return err
	}

	if work.Status == stg.processingStatus && stg.doneStatus != stg.processingStatus {
		work.SetStatus(stg.doneStatus, stg.doneStatus.Label())
	}
	committed, err := m.store.Update(commitContext(stageCtx), run.jobID, func(j *jobs.Job) error {
		if !j.UpdatedAt.Equal(snapshot.UpdatedAt) {
			return errConcurrentUpdate
		}
		*j = *work.Clone()
		return nil
	})
	if err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result",
			logging.Error(wrapped),
			logging.String(logging.FieldEventType, "stage_persist_failed"),
			logging.String(logging.FieldErrorHint, "check the state database"),
		)
		m.setLastError(wrapped)
		m.handleStageFailure(stageCtx, run, stageLogger, stg.name, wrapped)
		return wrapped
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(committed.Status)),
		logging.String("progress_stage", committed.Stage),
		logging.String("progress_message", committed.Message),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(committed)
	if committed.Status == jobs.StatusDraftReady {
		m.notifyDraftReady(stageCtx, committed)
	}
	return nil
}

// transitionToProcessing commits the stage's processing status and a start
// log line, returning the committed snapshot the handler works from.
func (m *Manager) transitionToProcessing(ctx context.Context, jobID string, stg pipelineStage) (jobs.Job, error) {
	return m.store.Update(commitContext(ctx), jobID, func(j *jobs.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("%w: %s", ErrJobFinished, j.Status)
		}
		label := stg.processingStatus.Label()
		j.SetStatus(stg.processingStatus, label+" started")
		j.Log(label + " started")
		return nil
	})
}

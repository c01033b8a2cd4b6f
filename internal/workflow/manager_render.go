package workflow

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// TriggerRender resumes a job that is awaiting render. The entitlement
// checker is consulted first; a denial returns a *RenderDeniedError and
// leaves the job untouched. An empty userID means the job owner.
func (m *Manager) TriggerRender(ctx context.Context, id, userID string, soundEnhance bool) error {
	if !m.isRunning() {
		return ErrNotRunning
	}
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID != "" && userID != job.UserID {
		return &jobs.ErrNotFound{ID: id}
	}
	if !job.AwaitingRender {
		return fmt.Errorf("%w: status %s", ErrNotAwaitingRender, job.Status)
	}

	logger := logging.WithContext(services.WithJobID(ctx, id), m.logger)
	if m.checker != nil {
		decision, err := m.checker.MayRender(ctx, job.UserID)
		if err != nil {
			return fmt.Errorf("entitlement check: %w", err)
		}
		if !decision.Allowed {
			logger.Info("render denied",
				logging.String(logging.FieldEventType, "render_denied"),
				logging.String(logging.FieldUserID, job.UserID),
				logging.String("plan", decision.Plan),
				logging.String("reason", decision.Reason),
			)
			return &RenderDeniedError{Decision: decision}
		}
	}

	_, err = m.store.Update(ctx, id, func(j *jobs.Job) error {
		if !j.AwaitingRender {
			return fmt.Errorf("%w: status %s", ErrNotAwaitingRender, j.Status)
		}
		j.AwaitingRender = false
		j.SoundEnhance = soundEnhance
		j.Message = "Render queued"
		if soundEnhance {
			j.Log("Render requested with sound enhancement")
		} else {
			j.Log("Render requested")
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("render triggered",
		logging.String(logging.FieldEventType, "render_triggered"),
		logging.Bool("sound_enhance", soundEnhance),
	)

	if err := m.launch(id, phaseRender); err != nil {
		m.handleStageFailure(ctx, &jobRun{jobID: id}, logger, "render", err)
		return err
	}
	return nil
}

// Cancel stops the job's running phase, killing its tool subprocesses, and
// commits it as failed with kind canceled. A job with no running phase (for
// example one awaiting render) is failed directly. Other jobs are unaffected.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrJobFinished, job.Status)
	}

	m.mu.Lock()
	run, active := m.runs[id]
	if active {
		run.canceled.Store(true)
	}
	m.mu.Unlock()

	logger := logging.WithContext(services.WithJobID(ctx, id), m.logger)
	logger.Info("cancel requested",
		logging.String(logging.FieldEventType, "cancel_requested"),
		logging.Bool("active", active),
	)
	if active {
		run.cancel()
		return nil
	}

	idle := &jobRun{jobID: id}
	idle.canceled.Store(true)
	m.handleStageFailure(ctx, idle, logger, "", context.Canceled)
	return nil
}

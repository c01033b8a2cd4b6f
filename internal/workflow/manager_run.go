package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"clipforge/internal/logging"
)

// Start enables job execution. Every job context derives from ctx, so
// canceling ctx has the same effect as Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.analysisStages) != 1 || len(m.renderStages) != 3 {
		return errors.New("workflow stages not configured")
	}
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.logger.Info("workflow started",
		logging.Int("max_concurrent_jobs", cap(m.slots)),
		logging.String(logging.FieldEventType, "workflow_start"),
	)
	return nil
}

// Stop cancels every running job and waits for their goroutines. Jobs
// interrupted this way are committed as failed with kind interrupted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

// launch starts phase for jobID in its own goroutine.
func (m *Manager) launch(jobID string, phase phaseKind) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	if _, busy := m.runs[jobID]; busy {
		m.mu.Unlock()
		return fmt.Errorf("job %s already has a running phase", jobID)
	}
	stages := m.analysisStages
	if phase == phaseRender {
		stages = m.renderStages
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	run := &jobRun{jobID: jobID, phase: phase, cancel: cancel, started: time.Now()}
	m.runs[jobID] = run
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runPhase(ctx, run, stages)
	return nil
}

func (m *Manager) runPhase(ctx context.Context, run *jobRun, stages []pipelineStage) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.runs, run.jobID)
		m.mu.Unlock()
		run.cancel()
	}()

	logger, closer := m.jobLogger(run.jobID)
	defer closer.Close()
	logger = logger.With(logging.String("phase", string(run.phase)))

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		m.handleStageFailure(ctx, run, logger, "", ctx.Err())
		return
	}
	defer func() { <-m.slots }()

	logger.Debug("phase started", logging.Duration("queued_for", time.Since(run.started)))
	for _, stg := range stages {
		if err := m.executeStage(ctx, run, logger, stg); err != nil {
			return
		}
	}

	if run.phase == phaseRender {
		m.onRenderComplete(ctx, run, logger)
	}
}

// onRenderComplete charges the render to the user's plan. A ledger failure is
// logged and never fails the job.
func (m *Manager) onRenderComplete(ctx context.Context, run *jobRun, logger *slog.Logger) {
	job, err := m.store.Get(ctx, run.jobID)
	if err != nil {
		logger.Error("completed job unavailable", logging.Error(err))
		return
	}
	m.setLastJob(job)
	if m.checker != nil {
		if err := m.checker.RecordRender(context.WithoutCancel(ctx), job.UserID); err != nil {
			logging.WarnWithContext(logger, "render usage not recorded; quota may under-count", "entitlement_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state database"),
			)
		}
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("outcome", job.Outcome()),
		logging.String("final_url", job.FinalURL),
		logging.Duration("render_duration", time.Since(run.started)),
	)
	m.notifyCompleted(ctx, job)
}

// jobLogger tees the manager logger into <outputs>/<jobID>/job.log.
func (m *Manager) jobLogger(jobID string) (*slog.Logger, io.Closer) {
	base := m.logger.With(logging.String(logging.FieldJobID, jobID))
	if m.storage == nil {
		return base, nopCloser{}
	}
	dir, err := m.storage.JobDir(jobID)
	if err != nil {
		logging.WarnWithContext(base, "job log unavailable", "job_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
		)
		return base, nopCloser{}
	}
	logger, closer, err := logging.JobLogger(base, filepath.Join(dir, "job.log"))
	if err != nil {
		logging.WarnWithContext(base, "job log unavailable", "job_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
		)
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// commitContext keeps store writes alive after the job context is canceled
// so failures can still be recorded.
func commitContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// IntakeRequest is a request to clip a previously uploaded source.
type IntakeRequest struct {
	UserID      string
	SourceKey   string
	ClipLengths []int
}

// Submit validates req, creates the job and starts its analysis. Input errors
// are returned synchronously and no job is created.
func (m *Manager) Submit(ctx context.Context, req IntakeRequest) (jobs.Job, error) {
	if !m.isRunning() {
		return jobs.Job{}, ErrNotRunning
	}
	lengths, err := m.normalizeLengths(req.ClipLengths)
	if err != nil {
		return jobs.Job{}, err
	}
	key := strings.TrimSpace(req.SourceKey)
	if key == "" {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "intake", "source key", "sourceKey is required", nil)
	}
	if m.storage == nil {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "intake", "storage", "no storage configured", nil)
	}
	path, err := m.storage.Resolve(key)
	if err != nil {
		return jobs.Job{}, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "anonymous"
	}

	job, err := m.store.Create(ctx, &jobs.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		SourceKey:   key,
		SourcePath:  path,
		ClipLengths: lengths,
		Status:      jobs.StatusQueued,
		Message:     "Queued for analysis",
		Logs:        []jobs.LogEntry{{Message: fmt.Sprintf("Job created for %s (lengths %v)", key, lengths)}},
	})
	if err != nil {
		return jobs.Job{}, fmt.Errorf("create job: %w", err)
	}

	logger := logging.WithContext(services.WithJobID(ctx, job.ID), m.logger)
	logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldUserID, userID),
		logging.String("source_key", key),
		logging.Any("clip_lengths", lengths),
	)

	if err := m.launch(job.ID, phaseAnalysis); err != nil {
		m.handleStageFailure(ctx, &jobRun{jobID: job.ID}, logger, "intake", err)
		return jobs.Job{}, err
	}
	return job, nil
}

// normalizeLengths sorts and deduplicates lengths and enforces the
// configured bounds.
func (m *Manager) normalizeLengths(lengths []int) ([]int, error) {
	if len(lengths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "intake", "clip lengths", "at least one clip length is required", nil)
	}
	lo, hi := m.cfg.Analysis.MinClipSeconds, m.cfg.Analysis.MaxClipSeconds
	seen := make(map[int]struct{}, len(lengths))
	out := make([]int, 0, len(lengths))
	for _, l := range lengths {
		if l < lo || l > hi {
			return nil, services.Wrap(services.ErrValidation, "intake", "clip lengths",
				fmt.Sprintf("clip length %ds outside %d..%ds", l, lo, hi), nil)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out, nil
}

// WaitForAnalysis blocks until the job's analysis is over: it awaits a render
// trigger, has moved past analysis, or finished.
func (m *Manager) WaitForAnalysis(ctx context.Context, id string) (jobs.Job, error) {
	for {
		signal := m.commitSignal()
		job, err := m.store.Get(ctx, id)
		if err != nil {
			return jobs.Job{}, err
		}
		if analysisSettled(job) {
			return job, nil
		}
		select {
		case <-signal:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return job, services.Wrap(services.ErrTimeout, "intake", "wait", "analysis still running", ctx.Err())
			}
			return job, ctx.Err()
		}
	}
}

func analysisSettled(job jobs.Job) bool {
	switch job.Status {
	case jobs.StatusQueued:
		return false
	case jobs.StatusAnalyzing:
		return job.AwaitingRender
	default:
		return true
	}
}

func (m *Manager) isRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

package workflow

import (
	"context"
	"errors"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
)

func (m *Manager) notifyDraftReady(ctx context.Context, job jobs.Job) {
	m.publish(ctx, notifications.EventDraftReady, notifications.Payload{
		"jobId":  job.ID,
		"source": job.SourceKey,
		"url":    job.DraftURL,
	})
}

func (m *Manager) notifyCompleted(ctx context.Context, job jobs.Job) {
	m.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
		"jobId":   job.ID,
		"source":  job.SourceKey,
		"url":     job.FinalURL,
		"outcome": job.Outcome(),
	})
}

func (m *Manager) notifyFailed(ctx context.Context, job jobs.Job) {
	payload := notifications.Payload{
		"jobId":  job.ID,
		"source": job.SourceKey,
	}
	if job.Error != nil {
		payload["stage"] = job.Error.Stage.Label()
		payload["error"] = job.Error.Message
	}
	m.publish(ctx, notifications.EventJobFailed, payload)
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldJobID, payload["jobId"]),
			logging.Error(err),
		)
	}
}

package workflow

import (
	"context"
	"sort"
	"time"

	"clipforge/internal/jobs"
	"clipforge/internal/stage"
)

// RunningJob describes one in-flight phase.
type RunningJob struct {
	JobID   string        `json:"jobId"`
	Phase   string        `json:"phase"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"lastError,omitempty"`
	LastJob     *jobs.Job               `json:"-"`
	JobCounts   map[jobs.Status]int     `json:"jobCounts"`
	Active      []RunningJob            `json:"active"`
	Slots       int                     `json:"slots"`
	StageHealth map[string]stage.Health `json:"stageHealth"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	stageSet := make([]pipelineStage, 0, len(m.analysisStages)+len(m.renderStages))
	stageSet = append(stageSet, m.analysisStages...)
	stageSet = append(stageSet, m.renderStages...)
	active := make([]RunningJob, 0, len(m.runs))
	for _, run := range m.runs {
		active = append(active, RunningJob{JobID: run.jobID, Phase: string(run.phase), Elapsed: time.Since(run.started)})
	}
	m.mu.RUnlock()
	sort.Slice(active, func(i, j int) bool { return active[i].JobID < active[j].JobID })

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		JobCounts:   m.store.Counts(),
		Active:      active,
		Slots:       cap(m.slots),
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		summary.LastJob = lastJob.Clone()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job jobs.Job) {
	m.mu.Lock()
	m.lastJob = job.Clone()
	m.mu.Unlock()
}

package api

import (
	"fmt"
	"slices"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/deps"
	"clipforge/internal/jobs"
	"clipforge/internal/stage"
	"clipforge/internal/workflow"
)

const titleWords = 8

// FromJob converts a job snapshot to its API representation.
func FromJob(job jobs.Job) Job {
	dto := Job{
		ID:             job.ID,
		UserID:         job.UserID,
		SourceKey:      job.SourceKey,
		ClipLengths:    append([]int(nil), job.ClipLengths...),
		Status:         string(job.Status),
		Stage:          job.Stage,
		Message:        job.Message,
		Progress:       job.Progress,
		CreatedAt:      FormatTime(job.CreatedAt),
		UpdatedAt:      FormatTime(job.UpdatedAt),
		Duration:       job.Duration,
		Candidates:     FromCandidates(job.Transcript, job.Candidates),
		AwaitingRender: job.AwaitingRender,
		SoundEnhance:   job.SoundEnhance,
		DraftURL:       job.DraftURL,
		FinalURL:       job.FinalURL,
		Outcome:        job.Outcome(),
		Logs:           make([]string, 0, len(job.Logs)),
	}
	if job.Details != nil {
		d := *job.Details
		d.Improvements = append([]string(nil), job.Details.Improvements...)
		dto.Details = &d
	}
	if job.Edit != nil {
		e := *job.Edit
		dto.Edit = &e
	}
	for _, entry := range job.Logs {
		dto.Logs = append(dto.Logs, entry.String())
	}
	if job.Error != nil {
		dto.Error = &JobError{
			Kind:    string(job.Error.Kind),
			Stage:   string(job.Error.Stage),
			Message: job.Error.Message,
			Hint:    job.Error.Hint,
		}
	}
	return dto
}

// FromJobs converts a slice of snapshots.
func FromJobs(list []jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromCandidates ranks candidates in stored order and titles each from the
// transcript words it covers. Never returns nil so the field encodes as [].
func FromCandidates(transcript []analysis.Segment, candidates []analysis.Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for i, c := range candidates {
		title := analysis.Label(transcript, c, titleWords)
		if title == "" {
			title = fmt.Sprintf("Clip at %d:%02d", int(c.Start)/60, int(c.Start)%60)
		}
		out = append(out, Candidate{
			Rank:          i + 1,
			Title:         title,
			Start:         c.Start,
			End:           c.End,
			Length:        c.Length,
			HookStart:     c.HookStart,
			Score:         c.Score,
			SpeechDensity: c.SpeechDensity,
			SilenceRatio:  c.SilenceRatio,
			Energy:        c.Energy,
		})
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	active := make([]ActivePhase, 0, len(summary.Active))
	for _, run := range summary.Active {
		active = append(active, ActivePhase{
			JobID:          run.JobID,
			Phase:          run.Phase,
			ElapsedSeconds: run.Elapsed.Round(time.Millisecond).Seconds(),
		})
	}
	wf := WorkflowStatus{
		Running:     summary.Running,
		JobCounts:   MergeJobCounts(summary.JobCounts),
		Slots:       summary.Slots,
		Active:      active,
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastJob != nil {
		last := FromJob(*summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeJobCounts produces a string-keyed count map that lists every status,
// including those with no jobs.
func MergeJobCounts(counts map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = counts[status]
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencies converts binary checks to API payload.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

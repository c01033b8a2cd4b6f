package jobs

import (
	"strings"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/services"
)

// Status represents the lifecycle of a clip job.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusAnalyzing      Status = "analyzing"
	StatusEnhancingAudio Status = "enhancing_audio"
	StatusRenderingDraft Status = "rendering_draft"
	StatusDraftReady     Status = "draft_ready"
	StatusRenderingFinal Status = "rendering_final"
	StatusDone           Status = "done"
	StatusFailed         Status = "failed"
)

// pipeline is the forward path; every non-terminal status may also fail.
var pipeline = []Status{
	StatusQueued,
	StatusAnalyzing,
	StatusEnhancingAudio,
	StatusRenderingDraft,
	StatusDraftReady,
	StatusRenderingFinal,
	StatusDone,
}

var statusIndex = func() map[Status]int {
	idx := make(map[Status]int, len(pipeline))
	for i, status := range pipeline {
		idx[status] = i
	}
	return idx
}()

// AllStatuses lists every status in pipeline order with failed last.
func AllStatuses() []Status {
	return append(append([]Status(nil), pipeline...), StatusFailed)
}

// ParseStatus normalizes user input into a known status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	if candidate == StatusFailed {
		return candidate, true
	}
	_, ok := statusIndex[candidate]
	return candidate, ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Next returns the forward successor, or "" for terminal statuses.
func (s Status) Next() Status {
	idx, ok := statusIndex[s]
	if !ok || idx+1 >= len(pipeline) {
		return ""
	}
	return pipeline[idx+1]
}

// CanTransition reports whether from -> to is an edge of the status graph.
// Staying in the same non-terminal status is allowed so stages can commit
// intermediate fields.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed || to == from {
		return true
	}
	return from.Next() == to
}

// Label is the human readable stage name for a status.
func (s Status) Label() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusAnalyzing:
		return "Analyzing"
	case StatusEnhancingAudio:
		return "Enhancing audio"
	case StatusRenderingDraft:
		return "Draft render"
	case StatusDraftReady:
		return "Draft ready"
	case StatusRenderingFinal:
		return "Final render"
	case StatusDone:
		return "Done"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// Progress maps a status to a coarse percentage. Failed jobs keep the value
// of the stage they failed in, so callers pass the last non-failed status.
func Progress(status Status, awaitingRender bool) int {
	switch status {
	case StatusQueued:
		return 0
	case StatusAnalyzing:
		if awaitingRender {
			return 30
		}
		return 10
	case StatusEnhancingAudio:
		return 40
	case StatusRenderingDraft:
		return 55
	case StatusDraftReady:
		return 70
	case StatusRenderingFinal:
		return 85
	case StatusDone:
		return 100
	default:
		return 0
	}
}

// Outcome values reported for finished jobs.
const (
	OutcomeClip             = "clip"
	OutcomeNoMeaningfulEdit = analysis.ReasonNoMeaningfulEdit
)

// LogEntry is one line of the job's append-only log. Entries appended with a
// zero Time are stamped by the store at commit.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// String renders "<RFC3339> <message>".
func (e LogEntry) String() string {
	return e.Time.UTC().Format(time.RFC3339Nano) + " " + e.Message
}

// JobError is recorded when a job fails.
type JobError struct {
	Kind    services.ErrorKind `json:"kind"`
	Stage   Status             `json:"stage"`
	Message string             `json:"message"`
	Hint    string             `json:"hint,omitempty"`
}

// Job is the aggregate root. Fields after Status are valid only once the
// corresponding stage has committed them.
type Job struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	SourceKey    string    `json:"sourceKey"`
	SourcePath   string    `json:"sourcePath"`
	ClipLengths  []int     `json:"clipLengths"`
	SoundEnhance bool      `json:"soundEnhance"`
	Status       Status    `json:"status"`
	Stage        string    `json:"stage"`
	Message      string    `json:"message"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Set by the probe in ANALYZING.
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`

	// Set once when ANALYZING completes.
	Transcript     []analysis.Segment       `json:"transcript,omitempty"`
	Silences       []analysis.Interval      `json:"silences,omitempty"`
	Candidates     []analysis.Candidate     `json:"candidates,omitempty"`
	Details        *analysis.Details        `json:"details,omitempty"`
	Edit           *analysis.EditAssessment `json:"edit,omitempty"`
	AwaitingRender bool                     `json:"awaitingRender"`

	EnhancedAudioPath string `json:"enhancedAudioPath,omitempty"`
	DraftPath         string `json:"draftPath,omitempty"`
	DraftURL          string `json:"draftUrl,omitempty"`
	FinalPath         string `json:"finalPath,omitempty"`
	FinalURL          string `json:"finalUrl,omitempty"`

	Logs  []LogEntry `json:"logs"`
	Error *JobError  `json:"error,omitempty"`
}

// Log appends a message; the store assigns its timestamp.
func (j *Job) Log(message string) {
	j.Logs = append(j.Logs, LogEntry{Message: message})
}

// SetStatus moves the job and refreshes the derived stage label and progress.
func (j *Job) SetStatus(status Status, message string) {
	if status != StatusFailed {
		j.Progress = Progress(status, j.AwaitingRender)
	}
	j.Status = status
	j.Stage = status.Label()
	j.Message = message
}

// Fail records err against the job's current stage.
func (j *Job) Fail(kind services.ErrorKind, message string) {
	stage := j.Status
	j.Error = &JobError{Kind: kind, Stage: stage, Message: message, Hint: services.Hint(kind)}
	j.AwaitingRender = false
	j.SetStatus(StatusFailed, message)
	j.Log("Failed during " + stage.Label() + ": " + message)
}

// Outcome reports the finished result, or "" before DONE.
func (j Job) Outcome() string {
	if j.Status != StatusDone {
		return ""
	}
	if j.Edit != nil && !j.Edit.Meaningful {
		return OutcomeNoMeaningfulEdit
	}
	return OutcomeClip
}

// Running reports whether a stage is executing for the job.
func (j Job) Running() bool {
	if j.Status.IsTerminal() {
		return false
	}
	if j.Status == StatusAnalyzing && j.AwaitingRender {
		return false
	}
	return true
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.ClipLengths = append([]int(nil), j.ClipLengths...)
	out.Transcript = append([]analysis.Segment(nil), j.Transcript...)
	out.Silences = append([]analysis.Interval(nil), j.Silences...)
	out.Candidates = append([]analysis.Candidate(nil), j.Candidates...)
	out.Logs = append([]LogEntry(nil), j.Logs...)
	if j.Details != nil {
		d := *j.Details
		d.Improvements = append([]string(nil), j.Details.Improvements...)
		out.Details = &d
	}
	if j.Edit != nil {
		e := *j.Edit
		out.Edit = &e
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Statuses []Status
	UserID   string
	Limit    int
}

func (f Filter) matches(j *Job) bool {
	if f.UserID != "" && j.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if j.Status == s {
			return true
		}
	}
	return false
}

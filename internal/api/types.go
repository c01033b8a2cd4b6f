package api

import (
	"clipforge/internal/analysis"
	"clipforge/internal/entitlement"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"userId,omitempty"`
	SourceKey      string                   `json:"sourceKey"`
	ClipLengths    []int                    `json:"clipLengths"`
	Status         string                   `json:"status"`
	Stage          string                   `json:"stage"`
	Message        string                   `json:"message"`
	Progress       int                      `json:"progress"`
	CreatedAt      string                   `json:"createdAt,omitempty"`
	UpdatedAt      string                   `json:"updatedAt,omitempty"`
	Duration       float64                  `json:"duration"`
	Candidates     []Candidate              `json:"candidates"`
	Details        *analysis.Details        `json:"details,omitempty"`
	Edit           *analysis.EditAssessment `json:"edit,omitempty"`
	AwaitingRender bool                     `json:"awaitingRender"`
	SoundEnhance   bool                     `json:"soundEnhance"`
	DraftURL       string                   `json:"draftUrl,omitempty"`
	FinalURL       string                   `json:"finalUrl,omitempty"`
	Outcome        string                   `json:"outcome,omitempty"`
	Logs           []string                 `json:"logs"`
	Error          *JobError                `json:"error,omitempty"`
}

// Candidate is one ranked clip window.
type Candidate struct {
	Rank          int     `json:"rank"`
	Title         string  `json:"title"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Length        int     `json:"length"`
	HookStart     float64 `json:"hookStart"`
	Score         float64 `json:"score"`
	SpeechDensity float64 `json:"speechDensity"`
	SilenceRatio  float64 `json:"silenceRatio"`
	Energy        float64 `json:"energy"`
}

// JobError mirrors jobs.JobError.
type JobError struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs   []Job          `json:"jobs"`
	Counts map[string]int `json:"counts"`
}

// SubmitRequest is the body of POST /api/jobs.
type SubmitRequest struct {
	SourceKey   string `json:"sourceKey"`
	ClipLengths []int  `json:"clipLengths"`
	Wait        bool   `json:"wait,omitempty"`
}

// SubmitResponse answers an intake request. Candidates are present only when
// the client asked to wait for analysis.
type SubmitResponse struct {
	JobID      string            `json:"jobId"`
	Status     string            `json:"status"`
	Candidates []Candidate       `json:"candidates,omitempty"`
	Details    *analysis.Details `json:"details,omitempty"`
	Error      *JobError         `json:"error,omitempty"`
}

// RenderRequest is the body of POST /api/jobs/{id}/render. JobID is only read
// by the /api/generate alias.
type RenderRequest struct {
	JobID        string `json:"jobId,omitempty"`
	SoundEnhance bool   `json:"soundEnhance"`
}

// ActionResponse acknowledges an accepted asynchronous action.
type ActionResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string                `json:"error"`
	Kind     string                `json:"kind,omitempty"`
	Hint     string                `json:"hint,omitempty"`
	Decision *entitlement.Decision `json:"decision,omitempty"`
}

// NotificationResult reports a test notification attempt.
type NotificationResult struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	JobCounts   map[string]int `json:"jobCounts"`
	Slots       int            `json:"slots"`
	Active      []ActivePhase  `json:"active"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Job           `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// ActivePhase is one job phase currently holding or waiting for a slot.
type ActivePhase struct {
	JobID          string  `json:"jobId"`
	Phase          string  `json:"phase"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

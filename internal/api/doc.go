// Package api defines wire-format types and converters for the HTTP API and
// the CLI client. It translates internal job snapshots into transport-friendly
// DTOs so consumers never couple to internal types.
//
// # Key Types
//
// Job: the status projection of one job (progress, candidates, chosen
// details, output URLs, outcome, logs and error).
//
// WorkflowStatus: daemon running state, job counts, stage health, active
// phases and the last finished job.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Converters
//
// FromJob: jobs.Job -> Job, with candidate titles derived from the
// transcript and log lines rendered as "<RFC3339> <message>".
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// statuses are exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds. The transcript itself is not projected; candidates carry a
// short title instead.
package api

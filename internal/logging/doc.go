// Package logging assembles structured slog loggers and formatting helpers used
// across clipforge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with job IDs, stages, and correlation IDs. JobLogger tees a
// component logger into a per-job log file kept next to the job's outputs.
package logging

package workflow

import (
	"context"
	"sync/atomic"
	"time"

	"clipforge/internal/jobs"
	"clipforge/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Analyzer      stage.Handler
	Enhancer      stage.Handler
	DraftRenderer stage.Handler
	FinalRenderer stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	processingStatus jobs.Status
	doneStatus       jobs.Status
	timeout          time.Duration
}

type phaseKind string

const (
	phaseAnalysis phaseKind = "analysis"
	phaseRender   phaseKind = "render"
)

// jobRun tracks one running phase of one job.
type jobRun struct {
	jobID    string
	phase    phaseKind
	cancel   context.CancelFunc
	canceled atomic.Bool
	started  time.Time
}

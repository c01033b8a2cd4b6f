package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"clipforge/internal/config"
	"clipforge/internal/entitlement"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/storage"
)

var (
	// ErrNotRunning is returned when work is submitted before Start or after Stop.
	ErrNotRunning = errors.New("workflow not running")
	// ErrNotAwaitingRender is returned by TriggerRender when analysis has not
	// finished or a render was already triggered.
	ErrNotAwaitingRender = errors.New("job is not awaiting a render trigger")
	// ErrJobFinished is returned when canceling a job that already reached a
	// terminal status.
	ErrJobFinished = errors.New("job already finished")
	// ErrRenderDenied marks an entitlement denial. Use errors.As with
	// *RenderDeniedError to read the decision.
	ErrRenderDenied = errors.New("render denied")
)

// RenderDeniedError carries the entitlement decision behind a denial.
type RenderDeniedError struct {
	Decision entitlement.Decision
}

func (e *RenderDeniedError) Error() string {
	if e.Decision.Reason != "" {
		return "render denied: " + e.Decision.Reason
	}
	return "render denied"
}

func (e *RenderDeniedError) Is(target error) bool { return target == ErrRenderDenied }

// Dependencies are the collaborators the manager consults.
type Dependencies struct {
	Storage  storage.Storage
	Checker  entitlement.Checker
	Notifier notifications.Service
}

// Manager coordinates job execution using registered stage handlers.
type Manager struct {
	cfg      *config.Config
	store    *jobs.Store
	storage  storage.Storage
	checker  entitlement.Checker
	notifier notifications.Service
	logger   *slog.Logger

	analysisStages []pipelineStage
	renderStages   []pipelineStage

	slots chan struct{}

	mu      sync.RWMutex
	running bool
	baseCtx context.Context
	cancel  context.CancelFunc
	runs    map[string]*jobRun
	wg      sync.WaitGroup
	lastErr error
	lastJob *jobs.Job

	commitMu sync.Mutex
	commitCh chan struct{}
}

// NewManager constructs a workflow manager. Stages must be registered with
// ConfigureStages before Start.
func NewManager(cfg *config.Config, store *jobs.Store, deps Dependencies, logger *slog.Logger) *Manager {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	limit := cfg.Workflow.MaxConcurrentJobs
	if limit <= 0 {
		limit = 1
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		storage:  deps.Storage,
		checker:  deps.Checker,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		slots:    make(chan struct{}, limit),
		runs:     make(map[string]*jobRun),
		commitCh: make(chan struct{}),
	}
	store.OnCommit(m.onCommit)
	return m
}

// onCommit wakes everything blocked in WaitForAnalysis.
func (m *Manager) onCommit(jobs.Job) {
	m.commitMu.Lock()
	close(m.commitCh)
	m.commitCh = make(chan struct{})
	m.commitMu.Unlock()
}

func (m *Manager) commitSignal() <-chan struct{} {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	return m.commitCh
}

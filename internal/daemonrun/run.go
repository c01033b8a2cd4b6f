// Package daemonrun wires configuration, persistence, the pipeline stages and
// the daemon into one process and runs it until a signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/database"
	"clipforge/internal/deps"
	"clipforge/internal/entitlement"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/toolexec"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
	"clipforge/internal/stages"
	"clipforge/internal/storage"
	"clipforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the clipforge daemon and blocks until ctx ends or SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "clipforge.log")},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logPreflight(signalCtx, logger, cfg)
	pidPath := filepath.Join(cfg.Paths.StateDir, "clipforge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		logger.Error("open state database", logging.Error(err))
		return err
	}
	defer db.Close()

	store, err := jobs.NewStore(signalCtx, db)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	interrupted, err := store.Restore(signalCtx)
	if err != nil {
		return fmt.Errorf("restore jobs: %w", err)
	}
	if interrupted > 0 {
		logging.WarnWithContext(logger, "jobs interrupted by previous shutdown", "jobs_interrupted",
			logging.Int("count", interrupted),
			logging.String(logging.FieldErrorHint, "resubmit the affected sources"),
		)
	}

	ledger, err := entitlement.NewLedger(signalCtx, db, entitlement.Options{
		Enforce:     cfg.Entitlement.Enforce,
		DefaultPlan: cfg.Entitlement.DefaultPlan,
		PeriodDays:  cfg.Entitlement.PeriodDays,
	})
	if err != nil {
		return fmt.Errorf("open entitlement ledger: %w", err)
	}

	files, err := storage.NewLocal(storage.Options{
		UploadDir:     cfg.Paths.UploadDir,
		OutputDir:     cfg.Paths.OutputDir,
		PublicBaseURL: cfg.API.PublicBaseURL,
		SigningKey:    cfg.Storage.SigningKey,
		TTL:           cfg.URLTTL(),
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	notifier := notifications.NewService(cfg)
	mgr := workflow.NewManager(cfg, store, workflow.Dependencies{
		Storage:  files,
		Checker:  ledger,
		Notifier: notifier,
	}, logger)
	registerStages(mgr, cfg, files, ledger, logger)

	d, err := daemon.New(cfg, daemon.Components{
		Store:    store,
		Workflow: mgr,
		Ledger:   ledger,
		Files:    files,
		Notifier: notifier,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down",
		logging.Duration("grace", time.Duration(cfg.Workflow.ShutdownGraceSeconds)*time.Second),
	)
	stopped := make(chan struct{})
	go func() {
		_ = d.Close()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Duration(cfg.Workflow.ShutdownGraceSeconds) * time.Second):
		logging.WarnWithContext(logger, "shutdown grace period elapsed", "shutdown_timeout",
			logging.String(logging.FieldErrorHint, "a tool ignored cancellation; check for orphaned ffmpeg processes"),
		)
	}
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, files storage.Storage, ledger entitlement.Checker, logger *slog.Logger) {
	runner := toolexec.NewExecRunner(logger)
	chain := stages.NewToolchain(cfg, runner)
	draft, final := stages.NewRenderers(cfg, chain, files, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Analyzer:      stages.NewAnalyzer(cfg, chain, files, ledger, logger),
		Enhancer:      stages.NewEnhancer(chain, files, logger),
		DraftRenderer: draft,
		FinalRenderer: final,
	})
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

var dependencyKey = strings.NewReplacer(" ", "_", ".", "_")

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckAll(cfg)
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, s := range statuses {
		key := strings.ToLower(dependencyKey.Replace(s.Name)) + "_available"
		attrs = append(attrs, logging.Bool(key, s.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.Missing(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required dependencies missing", "dependencies_missing",
			logging.Any("missing", missing),
			logging.String(logging.FieldErrorHint, "run clipforge deps for install hints"),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run clipforge deps"),
		)
	}
}

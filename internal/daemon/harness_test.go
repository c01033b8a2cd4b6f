package daemon

import (
	"context"
	"net/http/httptest"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/entitlement"
	"clipforge/internal/stages"
	"clipforge/internal/storage"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type testDaemon struct {
	cfg    *config.Config
	daemon *Daemon
	ledger *entitlement.Ledger
	tools  *testsupport.FakeTools
}

func talkTools() *testsupport.FakeTools {
	tools := testsupport.NewFakeTools(75,
		testsupport.FakeSegment{Start: 0.5, End: 6, Text: "Welcome back to the channel"},
		testsupport.FakeSegment{Start: 12, End: 20, Text: "Here are three things you need to know!"},
		testsupport.FakeSegment{Start: 21, End: 28, Text: "Number one, always check your settings."},
		testsupport.FakeSegment{Start: 40, End: 52, Text: "Why does this matter? Because your audience notices."},
	)
	tools.Silences = [][2]float64{{6, 12}, {28, 40}}
	return tools
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *testDaemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store, db := testsupport.MustOpenStore(t, cfg)
	ledger, err := entitlement.NewLedger(context.Background(), db, entitlement.Options{Enforce: true, DefaultPlan: "free"})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	files, err := storage.NewLocal(storage.Options{
		UploadDir:     cfg.Paths.UploadDir,
		OutputDir:     cfg.Paths.OutputDir,
		PublicBaseURL: cfg.API.PublicBaseURL,
		SigningKey:    cfg.Storage.SigningKey,
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	tools := talkTools()
	chain := stages.NewToolchain(cfg, tools)
	draft, final := stages.NewRenderers(cfg, chain, files, nil)
	mgr := workflow.NewManager(cfg, store, workflow.Dependencies{Storage: files, Checker: ledger}, nil)
	mgr.ConfigureStages(workflow.StageSet{
		Analyzer:      stages.NewAnalyzer(cfg, chain, files, ledger, nil),
		Enhancer:      stages.NewEnhancer(chain, files, nil),
		DraftRenderer: draft,
		FinalRenderer: final,
	})

	d, err := New(cfg, Components{Store: store, Workflow: mgr, Ledger: ledger, Files: files}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &testDaemon{cfg: cfg, daemon: d, ledger: ledger, tools: tools}
}

// serve starts only the workflow and exposes the router through httptest.
func (td *testDaemon) serve(t *testing.T) *httptest.Server {
	t.Helper()
	if err := td.daemon.workflow.Start(context.Background()); err != nil {
		t.Fatalf("workflow Start: %v", err)
	}
	t.Cleanup(td.daemon.workflow.Stop)
	ts := httptest.NewServer(td.daemon.api.handler)
	t.Cleanup(ts.Close)
	return ts
}

package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/entitlement"
	"clipforge/internal/jobs"
	"clipforge/internal/media/toolexec"
	"clipforge/internal/notifications"
	"clipforge/internal/services"
	"clipforge/internal/stages"
	"clipforge/internal/storage"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	done   chan notifications.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan notifications.Event, 16)}
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	if event == notifications.EventJobCompleted || event == notifications.EventJobFailed {
		r.done <- event
	}
	return nil
}

func (r *recordingNotifier) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type harness struct {
	cfg      *config.Config
	store    *jobs.Store
	ledger   *entitlement.Ledger
	tools    *testsupport.FakeTools
	notifier *recordingNotifier
	manager  *workflow.Manager

	mu       sync.Mutex
	statuses map[string][]jobs.Status
}

func newHarness(t *testing.T, tools *testsupport.FakeTools, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store, db := testsupport.MustOpenStore(t, cfg)
	ledger, err := entitlement.NewLedger(context.Background(), db, entitlement.Options{
		Enforce:     true,
		DefaultPlan: "free",
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	local, err := storage.NewLocal(storage.Options{
		UploadDir:     cfg.Paths.UploadDir,
		OutputDir:     cfg.Paths.OutputDir,
		PublicBaseURL: cfg.API.PublicBaseURL,
		SigningKey:    cfg.Storage.SigningKey,
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	h := &harness{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		tools:    tools,
		notifier: newRecordingNotifier(),
		statuses: make(map[string][]jobs.Status),
	}
	store.OnCommit(h.record)

	chain := stages.NewToolchain(cfg, tools)
	draft, final := stages.NewRenderers(cfg, chain, local, nil)
	h.manager = workflow.NewManager(cfg, store, workflow.Dependencies{
		Storage:  local,
		Checker:  ledger,
		Notifier: h.notifier,
	}, nil)
	h.manager.ConfigureStages(workflow.StageSet{
		Analyzer:      stages.NewAnalyzer(cfg, chain, local, ledger, nil),
		Enhancer:      stages.NewEnhancer(chain, local, nil),
		DraftRenderer: draft,
		FinalRenderer: final,
	})
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.manager.Stop)
	return h
}

func (h *harness) record(job jobs.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.statuses[job.ID]
	if len(list) == 0 || list[len(list)-1] != job.Status {
		h.statuses[job.ID] = append(list, job.Status)
	}
}

func (h *harness) observed(id string) []jobs.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]jobs.Status(nil), h.statuses[id]...)
}

func (h *harness) submit(t *testing.T, key string, lengths ...int) jobs.Job {
	t.Helper()
	testsupport.WriteUpload(t, h.cfg.Paths.UploadDir, key)
	job, err := h.manager.Submit(context.Background(), workflow.IntakeRequest{
		UserID:      "user-1",
		SourceKey:   key,
		ClipLengths: lengths,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return job
}

func (h *harness) waitAnalysis(t *testing.T, id string) jobs.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := h.manager.WaitForAnalysis(ctx, id)
	if err != nil {
		t.Fatalf("WaitForAnalysis: %v", err)
	}
	return job
}

func (h *harness) waitFor(t *testing.T, id string, cond func(jobs.Job) bool) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := h.store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if cond(job) {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for job %s; last status %s (%s)", id, job.Status, job.Message)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) waitNotification(t *testing.T, want notifications.Event) {
	t.Helper()
	select {
	case got := <-h.notifier.done:
		if got != want {
			t.Fatalf("notification = %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s notification", want)
	}
}

func terminal(job jobs.Job) bool { return job.Status.IsTerminal() }

func talk() *testsupport.FakeTools {
	tools := testsupport.NewFakeTools(75,
		testsupport.FakeSegment{Start: 0.5, End: 6, Text: "Welcome back to the channel"},
		testsupport.FakeSegment{Start: 12, End: 20, Text: "Here are three things you need to know!"},
		testsupport.FakeSegment{Start: 21, End: 28, Text: "Number one, always check your settings."},
		testsupport.FakeSegment{Start: 40, End: 52, Text: "Why does this matter? Because your audience notices."},
		testsupport.FakeSegment{Start: 60, End: 70, Text: "That's all for today, thanks for watching."},
	)
	tools.Silences = [][2]float64{{6, 12}, {28, 40}}
	return tools
}

func TestPipelineRunsAnalysisThenRenders(t *testing.T) {
	h := newHarness(t, talk())
	job := h.submit(t, "talk.mp4", 30, 15, 30)

	if got := job.ClipLengths; len(got) != 2 || got[0] != 15 || got[1] != 30 {
		t.Fatalf("expected normalized lengths [15 30], got %v", got)
	}

	analyzed := h.waitAnalysis(t, job.ID)
	if !analyzed.AwaitingRender || analyzed.Status != jobs.StatusAnalyzing {
		t.Fatalf("expected awaiting render, got %s awaiting=%v (%s)", analyzed.Status, analyzed.AwaitingRender, analyzed.Message)
	}
	if len(analyzed.Candidates) == 0 || analyzed.Details == nil {
		t.Fatal("expected candidates and details after analysis")
	}
	if len(h.tools.CallsTo("rendering_draft")) != 0 {
		t.Fatal("no render may start before the trigger")
	}

	if err := h.manager.TriggerRender(context.Background(), job.ID, "", true); err != nil {
		t.Fatalf("TriggerRender: %v", err)
	}
	h.waitNotification(t, notifications.EventJobCompleted)

	done, err := h.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if done.Status != jobs.StatusDone || done.Outcome() != jobs.OutcomeClip {
		t.Fatalf("expected done clip, got %s outcome=%q", done.Status, done.Outcome())
	}
	if done.DraftURL == "" || done.FinalURL == "" || done.EnhancedAudioPath == "" {
		t.Fatalf("expected draft, final and enhanced outputs: %+v", done)
	}

	want := []jobs.Status{
		jobs.StatusQueued, jobs.StatusAnalyzing, jobs.StatusEnhancingAudio, jobs.StatusRenderingDraft,
		jobs.StatusDraftReady, jobs.StatusRenderingFinal, jobs.StatusDone,
	}
	got := h.observed(job.ID)
	if len(got) != len(want) {
		t.Fatalf("observed statuses %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("observed statuses %v, want %v", got, want)
		}
	}

	draftAt, finalAt := logTime(t, done, "Draft ready"), logTime(t, done, "Final clip ready")
	if !draftAt.Before(finalAt) {
		t.Fatalf("draft log %v must precede final log %v", draftAt, finalAt)
	}
	for i := 1; i < len(done.Logs); i++ {
		if done.Logs[i].Time.Before(done.Logs[i-1].Time) {
			t.Fatalf("log timestamps decrease at %d", i)
		}
	}

	decision, err := h.ledger.MayRender(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MayRender: %v", err)
	}
	if decision.Used != 1 {
		t.Fatalf("expected one recorded render, got %d", decision.Used)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, job.ID, "job.log")); err != nil {
		t.Fatalf("job log missing: %v", err)
	}
	events := h.notifier.Events()
	if len(events) != 2 || events[0] != notifications.EventDraftReady {
		t.Fatalf("unexpected notifications %v", events)
	}
}

func logTime(t *testing.T, job jobs.Job, prefix string) time.Time {
	t.Helper()
	for _, entry := range job.Logs {
		if strings.HasPrefix(entry.Message, prefix) {
			return entry.Time
		}
	}
	t.Fatalf("no log entry starting with %q", prefix)
	return time.Time{}
}

func TestShortSourceCompletesWithoutMeaningfulEdit(t *testing.T) {
	tools := testsupport.NewFakeTools(8, testsupport.FakeSegment{Start: 0, End: 7.5, Text: "one quick tip"})
	h := newHarness(t, tools)
	job := h.submit(t, "short.mp4", 15, 30)

	analyzed := h.waitAnalysis(t, job.ID)
	if len(analyzed.Candidates) != 1 || analyzed.Candidates[0].End != 8 {
		t.Fatalf("expected a single [0, 8) candidate, got %+v", analyzed.Candidates)
	}
	if err := h.manager.TriggerRender(context.Background(), job.ID, "user-1", false); err != nil {
		t.Fatalf("TriggerRender: %v", err)
	}
	h.waitNotification(t, notifications.EventJobCompleted)

	done, _ := h.store.Get(context.Background(), job.ID)
	if done.Status != jobs.StatusDone || done.Outcome() != jobs.OutcomeNoMeaningfulEdit {
		t.Fatalf("expected done with no meaningful edit, got %s %q", done.Status, done.Outcome())
	}
	if done.EnhancedAudioPath != "" {
		t.Fatal("enhancement was not requested")
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, talk())
	testsupport.WriteUpload(t, h.cfg.Paths.UploadDir, "ok.mp4")

	cases := []struct {
		name string
		req  workflow.IntakeRequest
		want error
	}{
		{"no lengths", workflow.IntakeRequest{SourceKey: "ok.mp4"}, services.ErrValidation},
		{"too short", workflow.IntakeRequest{SourceKey: "ok.mp4", ClipLengths: []int{3}}, services.ErrValidation},
		{"too long", workflow.IntakeRequest{SourceKey: "ok.mp4", ClipLengths: []int{15, 500}}, services.ErrValidation},
		{"missing source", workflow.IntakeRequest{SourceKey: "nope.mp4", ClipLengths: []int{15}}, services.ErrNotFound},
		{"traversal", workflow.IntakeRequest{SourceKey: "../etc/passwd", ClipLengths: []int{15}}, services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.manager.Submit(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if n := len(h.store.List(context.Background(), jobs.Filter{})); n != 0 {
		t.Fatalf("rejected intake must not create jobs, found %d", n)
	}
}

func TestDraftRenderFailureFailsJob(t *testing.T) {
	tools := talk()
	tools.Fail = func(cmd toolexec.Command) error {
		if cmd.Stage == "rendering_draft" {
			return services.Wrap(services.ErrExternalTool, cmd.Stage, "ffmpeg", "exit status 1: Conversion failed!", nil)
		}
		return nil
	}
	h := newHarness(t, tools)
	job := h.submit(t, "talk.mp4", 15)
	h.waitAnalysis(t, job.ID)

	if err := h.manager.TriggerRender(context.Background(), job.ID, "", false); err != nil {
		t.Fatalf("TriggerRender: %v", err)
	}
	h.waitNotification(t, notifications.EventJobFailed)

	failed := h.waitFor(t, job.ID, terminal)
	if failed.Status != jobs.StatusFailed || failed.Error == nil {
		t.Fatalf("expected failed with error, got %s", failed.Status)
	}
	if failed.Error.Kind != services.KindExternalTool || failed.Error.Stage != jobs.StatusRenderingDraft {
		t.Fatalf("unexpected error %+v", failed.Error)
	}
	if !strings.Contains(failed.Error.Message, "Conversion failed") {
		t.Fatalf("expected tool diagnostic in error, got %q", failed.Error.Message)
	}
	if failed.DraftURL != "" || failed.FinalURL != "" {
		t.Fatal("failed draft must not set urls")
	}
	if len(tools.CallsTo("rendering_final")) != 0 {
		t.Fatal("final render must not run after a failed draft")
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, job.ID, "draft.mp4")); !os.IsNotExist(err) {
		t.Fatalf("expected no draft file, stat err=%v", err)
	}
	decision, _ := h.ledger.MayRender(context.Background(), "user-1")
	if decision.Used != 0 {
		t.Fatalf("failed render must not be charged, used=%d", decision.Used)
	}
}

func TestRenderDeniedWhenQuotaExhausted(t *testing.T) {
	h := newHarness(t, talk())
	job := h.submit(t, "talk.mp4", 15)
	before := h.waitAnalysis(t, job.ID)

	plan, _ := entitlement.LookupPlan("free")
	for i := 0; i < plan.RendersPerPeriod; i++ {
		if err := h.ledger.RecordRender(context.Background(), "user-1"); err != nil {
			t.Fatalf("RecordRender: %v", err)
		}
	}

	err := h.manager.TriggerRender(context.Background(), job.ID, "", false)
	if !errors.Is(err, workflow.ErrRenderDenied) {
		t.Fatalf("expected render denial, got %v", err)
	}
	var denied *workflow.RenderDeniedError
	if !errors.As(err, &denied) || denied.Decision.Reason != entitlement.ReasonQuotaExhausted {
		t.Fatalf("expected quota decision, got %#v", err)
	}

	after, _ := h.store.Get(context.Background(), job.ID)
	if after.Status != jobs.StatusAnalyzing || !after.AwaitingRender || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("denial must leave the job untouched, got %s awaiting=%v", after.Status, after.AwaitingRender)
	}
	if len(h.tools.CallsTo("enhancing_audio"))+len(h.tools.CallsTo("rendering_draft")) != 0 {
		t.Fatal("no render work may start after a denial")
	}
}

func TestTriggerRenderRequiresAwaitingJob(t *testing.T) {
	h := newHarness(t, talk())
	job := h.submit(t, "talk.mp4", 15)
	h.waitAnalysis(t, job.ID)

	if err := h.manager.TriggerRender(context.Background(), job.ID, "someone-else", false); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
	if err := h.manager.TriggerRender(context.Background(), job.ID, "", false); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if err := h.manager.TriggerRender(context.Background(), job.ID, "", false); !errors.Is(err, workflow.ErrNotAwaitingRender) {
		t.Fatalf("expected ErrNotAwaitingRender, got %v", err)
	}
	h.waitNotification(t, notifications.EventJobCompleted)
	if err := h.manager.Cancel(context.Background(), job.ID); !errors.Is(err, workflow.ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}
}

func blockProbeOf(key string) func(toolexec.Command) bool {
	return func(cmd toolexec.Command) bool {
		return cmd.Stage == "probe" && strings.Contains(strings.Join(cmd.Args, " "), key)
	}
}

func TestCancelStopsOnlyTargetJob(t *testing.T) {
	tools := talk()
	tools.Block = blockProbeOf("slow.mp4")
	h := newHarness(t, tools)

	slow := h.submit(t, "slow.mp4", 15)
	select {
	case <-tools.Blocked():
	case <-time.After(5 * time.Second):
		t.Fatal("slow job never reached the probe")
	}
	fast := h.submit(t, "fast.mp4", 15)

	if err := h.manager.Cancel(context.Background(), slow.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	canceled := h.waitFor(t, slow.ID, terminal)
	if canceled.Status != jobs.StatusFailed || canceled.Error.Kind != services.KindCanceled {
		t.Fatalf("expected canceled failure, got %s %+v", canceled.Status, canceled.Error)
	}

	other := h.waitAnalysis(t, fast.ID)
	if !other.AwaitingRender {
		t.Fatalf("sibling job should finish analysis, got %s (%s)", other.Status, other.Message)
	}
	for _, e := range h.notifier.Events() {
		if e == notifications.EventJobFailed {
			t.Fatal("cancellation must not send a failure notification")
		}
	}
}

func TestCancelAwaitingJob(t *testing.T) {
	h := newHarness(t, talk())
	job := h.submit(t, "talk.mp4", 15)
	h.waitAnalysis(t, job.ID)

	if err := h.manager.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	canceled, _ := h.store.Get(context.Background(), job.ID)
	if canceled.Status != jobs.StatusFailed || canceled.Error.Kind != services.KindCanceled || canceled.AwaitingRender {
		t.Fatalf("expected canceled job, got %s %+v", canceled.Status, canceled.Error)
	}
	if err := h.manager.TriggerRender(context.Background(), job.ID, "", false); !errors.Is(err, workflow.ErrNotAwaitingRender) {
		t.Fatalf("canceled job must not render, got %v", err)
	}
}

func TestStageTimeoutFailsJob(t *testing.T) {
	tools := talk()
	tools.Block = blockProbeOf("stuck.mp4")
	h := newHarness(t, tools, testsupport.WithConfig(func(c *config.Config) {
		c.Workflow.AnalyzeTimeout = 1
	}))

	job := h.submit(t, "stuck.mp4", 15)
	failed := h.waitFor(t, job.ID, terminal)
	if failed.Status != jobs.StatusFailed || failed.Error.Kind != services.KindTimeout {
		t.Fatalf("expected timeout failure, got %s %+v", failed.Status, failed.Error)
	}
	if failed.Error.Stage != jobs.StatusAnalyzing {
		t.Fatalf("expected failure in analyzing, got %s", failed.Error.Stage)
	}
}

func TestStopInterruptsRunningJobs(t *testing.T) {
	tools := talk()
	tools.Block = blockProbeOf("long.mp4")
	h := newHarness(t, tools)

	job := h.submit(t, "long.mp4", 15)
	select {
	case <-tools.Blocked():
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached the probe")
	}
	h.manager.Stop()

	stopped, _ := h.store.Get(context.Background(), job.ID)
	if stopped.Status != jobs.StatusFailed || stopped.Error.Kind != services.KindInterrupted {
		t.Fatalf("expected interrupted failure, got %s %+v", stopped.Status, stopped.Error)
	}
	if _, err := h.manager.Submit(context.Background(), workflow.IntakeRequest{SourceKey: "long.mp4", ClipLengths: []int{15}}); !errors.Is(err, workflow.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after Stop, got %v", err)
	}
}

func TestStatusSummaryReportsCountsAndHealth(t *testing.T) {
	h := newHarness(t, talk(), testsupport.WithStubbedBinaries())
	job := h.submit(t, "talk.mp4", 15)
	h.waitAnalysis(t, job.ID)

	summary := h.manager.Status(context.Background())
	if !summary.Running || summary.Slots != h.cfg.Workflow.MaxConcurrentJobs {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.JobCounts[jobs.StatusAnalyzing] != 1 {
		t.Fatalf("expected one analyzing job, got %v", summary.JobCounts)
	}
	if len(summary.StageHealth) != 4 {
		t.Fatalf("expected four stage health entries, got %v", summary.StageHealth)
	}
	for name, health := range summary.StageHealth {
		if !health.Ready {
			t.Fatalf("stage %s not ready: %s", name, health.Detail)
		}
	}
}

package jobs_test

import (
	"testing"

	"clipforge/internal/jobs"
)

func TestCanTransitionFollowsGraph(t *testing.T) {
	statuses := jobs.AllStatuses()
	for _, from := range statuses {
		for _, to := range statuses {
			got := jobs.CanTransition(from, to)
			want := false
			switch {
			case from.IsTerminal():
				want = false
			case to == jobs.StatusFailed, to == from:
				want = true
			default:
				want = from.Next() == to
			}
			if got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	legal := [][2]jobs.Status{
		{jobs.StatusQueued, jobs.StatusAnalyzing},
		{jobs.StatusAnalyzing, jobs.StatusEnhancingAudio},
		{jobs.StatusEnhancingAudio, jobs.StatusRenderingDraft},
		{jobs.StatusRenderingDraft, jobs.StatusDraftReady},
		{jobs.StatusDraftReady, jobs.StatusRenderingFinal},
		{jobs.StatusRenderingFinal, jobs.StatusDone},
	}
	for _, edge := range legal {
		if !jobs.CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be legal", edge[0], edge[1])
		}
	}
	illegal := [][2]jobs.Status{
		{jobs.StatusQueued, jobs.StatusRenderingDraft},
		{jobs.StatusDraftReady, jobs.StatusAnalyzing},
		{jobs.StatusDone, jobs.StatusFailed},
		{jobs.StatusFailed, jobs.StatusQueued},
	}
	for _, edge := range illegal {
		if jobs.CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s to be illegal", edge[0], edge[1])
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := jobs.ParseStatus(" Draft_Ready "); !ok || s != jobs.StatusDraftReady {
		t.Fatalf("unexpected parse result %q %v", s, ok)
	}
	if _, ok := jobs.ParseStatus("paused"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestProgressAndLabels(t *testing.T) {
	if jobs.Progress(jobs.StatusAnalyzing, true) != 30 || jobs.Progress(jobs.StatusAnalyzing, false) != 10 {
		t.Fatal("unexpected analyzing progress")
	}
	if jobs.Progress(jobs.StatusDone, false) != 100 {
		t.Fatal("done should report 100")
	}
	if jobs.StatusRenderingDraft.Label() != "Draft render" {
		t.Fatalf("unexpected label %q", jobs.StatusRenderingDraft.Label())
	}
}

func TestFailKeepsProgressAndRecordsStage(t *testing.T) {
	job := &jobs.Job{ID: "a"}
	job.SetStatus(jobs.StatusRenderingDraft, "rendering")
	job.Fail("external_tool", "ffmpeg exited 1")
	if job.Status != jobs.StatusFailed || job.Progress != 55 {
		t.Fatalf("unexpected failed job %+v", job)
	}
	if job.Error == nil || job.Error.Stage != jobs.StatusRenderingDraft {
		t.Fatalf("expected error stage to be rendering_draft, got %+v", job.Error)
	}
	if len(job.Logs) != 1 {
		t.Fatalf("expected failure log line, got %v", job.Logs)
	}
}

package analysis_test

import (
	"reflect"
	"testing"

	"clipforge/internal/analysis"
)

func speechEvery(duration, gap float64) []analysis.Segment {
	var out []analysis.Segment
	for start := 0.0; start < duration; start += gap {
		end := start + gap*0.8
		if end > duration {
			end = duration
		}
		out = append(out, analysis.Segment{Start: start, End: end, Text: "so here is why you should try this", Confidence: 0.9})
	}
	return out
}

func TestGenerateShortSourceYieldsSingleWindow(t *testing.T) {
	windows := analysis.Generate(8, []int{15, 30}, nil, 0)
	if len(windows) != 1 {
		t.Fatalf("expected one window, got %d", len(windows))
	}
	if windows[0].Start != 0 || windows[0].End != 8 {
		t.Fatalf("unexpected window %+v", windows[0])
	}
}

func TestGenerateRespectsBoundsAndCap(t *testing.T) {
	transcript := speechEvery(180, 4)
	windows := analysis.Generate(180, []int{60, 15, 30, 15}, transcript, 12)
	perLength := map[int]int{}
	for _, w := range windows {
		perLength[w.Length]++
		if w.Start < 0 || w.End > 180 {
			t.Fatalf("window out of bounds: %+v", w)
		}
		if got := w.End - w.Start; got != float64(w.Length) {
			t.Fatalf("window %+v has span %v", w, got)
		}
	}
	for _, length := range []int{15, 30, 60} {
		if perLength[length] == 0 || perLength[length] > 12 {
			t.Fatalf("length %d produced %d windows", length, perLength[length])
		}
	}
	if len(perLength) != 3 {
		t.Fatalf("expected duplicate length to collapse, got %v", perLength)
	}
}

func TestGenerateKeepsFractionalDurationBounds(t *testing.T) {
	const duration = 180.046512
	transcript := []analysis.Segment{{Start: 170.0004, End: 175, Text: "late start"}}
	windows := analysis.Generate(duration, []int{15, 30}, transcript, 0)
	if len(windows) == 0 {
		t.Fatal("expected windows")
	}
	for _, w := range windows {
		if w.Start < 0 || w.End > duration {
			t.Fatalf("window %+v exceeds source duration %v", w, duration)
		}
	}

	short := analysis.Generate(8.0006, []int{15, 30}, nil, 0)
	if len(short) != 1 || short[0].Start != 0 || short[0].End != 8.0006 {
		t.Fatalf("expected single window ending at the source duration, got %+v", short)
	}
}

func TestGenerateSkipsLengthsLongerThanSource(t *testing.T) {
	windows := analysis.Generate(40, []int{15, 60}, nil, 0)
	for _, w := range windows {
		if w.Length == 60 {
			t.Fatalf("unexpected 60s window for 40s source: %+v", w)
		}
	}
	if len(windows) == 0 {
		t.Fatal("expected 15s windows")
	}
}

func TestScorePrefersSpeechOverSilence(t *testing.T) {
	transcript := []analysis.Segment{{Start: 0, End: 10, Text: "one two three four five six seven eight"}}
	silences := []analysis.Interval{{Start: 10, End: 20}}
	windows := []analysis.Window{{Start: 0, End: 10, Length: 10}, {Start: 10, End: 20, Length: 10}}

	scored := analysis.NewScorer(analysis.Weights{}, 0).Score(windows, transcript, silences)
	if scored[0].SpeechDensity != 1 || scored[0].SilenceRatio != 0 {
		t.Fatalf("unexpected features for speech window: %+v", scored[0])
	}
	if scored[1].SilenceRatio != 1 || scored[1].SpeechDensity != 0 {
		t.Fatalf("unexpected features for silent window: %+v", scored[1])
	}
	if scored[0].Score <= scored[1].Score {
		t.Fatalf("speech window should outrank silence: %v vs %v", scored[0].Score, scored[1].Score)
	}
	if scored[1].Score != -0.3 {
		t.Fatalf("expected silent window score -0.3, got %v", scored[1].Score)
	}
}

func TestRankBreaksTiesByStartThenLength(t *testing.T) {
	in := []analysis.Candidate{
		{Start: 10, Length: 30, Score: 0.5},
		{Start: 5, Length: 30, Score: 0.5},
		{Start: 5, Length: 15, Score: 0.5},
		{Start: 40, Length: 15, Score: 0.7},
	}
	ranked := analysis.Rank(in)
	want := []struct {
		start  float64
		length int
	}{{40, 15}, {5, 15}, {5, 30}, {10, 30}}
	for i, w := range want {
		if ranked[i].Start != w.start || ranked[i].Length != w.length {
			t.Fatalf("rank %d = %+v, want start=%v length=%d", i, ranked[i], w.start, w.length)
		}
	}
	if in[0].Start != 10 {
		t.Fatal("Rank must not reorder its input")
	}
}

func TestSelectHook(t *testing.T) {
	c := analysis.Candidate{Start: 0, End: 15, Length: 15}
	cases := []struct {
		name       string
		transcript []analysis.Segment
		silences   []analysis.Interval
		want       float64
	}{
		{"speech at start", nil, nil, 0},
		{
			"first voiced segment",
			[]analysis.Segment{{Start: 1, End: 2}, {Start: 2.5, End: 4}},
			[]analysis.Interval{{Start: 0, End: 1.2}},
			2.5,
		},
		{"end of leading silence", nil, []analysis.Interval{{Start: 0, End: 2}}, 2},
		{"silence past scan window", nil, []analysis.Interval{{Start: 0, End: 5}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := analysis.SelectHook(c, tc.transcript, tc.silences, 3)
			if got != tc.want {
				t.Fatalf("hook = %v, want %v", got, tc.want)
			}
			if got < c.Start || got >= c.End {
				t.Fatalf("hook %v outside candidate", got)
			}
		})
	}
}

func TestAssessEditFlagsNearFullClip(t *testing.T) {
	details := analysis.Details{ChosenStart: 0, ChosenEnd: 8, HookStart: 0}
	got := analysis.AssessEdit(8, details, 3)
	if got.Meaningful || got.Reason != analysis.ReasonNoMeaningfulEdit {
		t.Fatalf("expected no_meaningful_edit, got %+v", got)
	}

	details = analysis.Details{ChosenStart: 30, ChosenEnd: 60, HookStart: 31.5}
	got = analysis.AssessEdit(180, details, 3)
	if !got.Meaningful || got.RemovedSeconds != 151.5 || got.ClipSeconds != 28.5 {
		t.Fatalf("unexpected assessment %+v", got)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	in := analysis.Input{
		DurationSeconds: 180,
		ClipLengths:     []int{15, 30, 60},
		Transcript:      speechEvery(180, 5),
		Silences:        []analysis.Interval{{Start: 0, End: 1.5}, {Start: 90, End: 96}},
	}
	first, err := analysis.Analyze(in, analysis.Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := analysis.Analyze(in, analysis.Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated analysis diverged")
	}
	d := first.Details
	if !(d.ChosenStart <= d.HookStart && d.HookStart < d.ChosenEnd) {
		t.Fatalf("hook outside chosen span: %+v", d)
	}
	if !first.Edit.Meaningful {
		t.Fatalf("expected meaningful edit for 180s source, got %+v", first.Edit)
	}
	if d.Improvements[len(d.Improvements)-1] != analysis.ImprovementHighEnergy {
		t.Fatalf("unexpected improvements %v", d.Improvements)
	}
	for i := 1; i < len(first.Candidates); i++ {
		if first.Candidates[i].Score > first.Candidates[i-1].Score {
			t.Fatal("candidates not ranked by score")
		}
	}
}

func TestAnalyzeShortSource(t *testing.T) {
	res, err := analysis.Analyze(analysis.Input{DurationSeconds: 8, ClipLengths: []int{15}}, analysis.Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Candidates) != 1 || res.Details.ChosenStart != 0 || res.Details.ChosenEnd != 8 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Edit.Meaningful {
		t.Fatal("whole-source clip should not be a meaningful edit")
	}
}

func TestAnalyzeWithoutDurationFails(t *testing.T) {
	if _, err := analysis.Analyze(analysis.Input{ClipLengths: []int{15}}, analysis.Options{}); err != analysis.ErrNoCandidates {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestLabelUsesOpeningWords(t *testing.T) {
	transcript := []analysis.Segment{{Start: 0, End: 2, Text: "um"}, {Start: 2, End: 5, Text: "here is the secret trick nobody tells you"}}
	got := analysis.Label(transcript, analysis.Candidate{Start: 0, End: 10, HookStart: 2}, 4)
	if got != "Here Is The Secret" {
		t.Fatalf("unexpected label %q", got)
	}
}

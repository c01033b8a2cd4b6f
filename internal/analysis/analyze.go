package analysis

import "errors"

// ErrNoCandidates is returned when no window could be generated.
var ErrNoCandidates = errors.New("no candidate windows")

// Options tune a full analysis pass. Zero values fall back to the defaults.
type Options struct {
	Weights                  Weights
	WordsPerSecond           float64
	MaxWindowsPerLength      int
	HookScanSeconds          float64
	MinMeaningfulEditSeconds float64
}

// Input is everything a pass needs from the media layer.
type Input struct {
	DurationSeconds float64
	ClipLengths     []int
	Transcript      []Segment
	Silences        []Interval
}

// Result holds the ranked candidates and the chosen clip.
type Result struct {
	Candidates []Candidate
	Chosen     Candidate
	Details    Details
	Edit       EditAssessment
}

// Analyze generates, scores and ranks candidates, assigns each a hook and
// describes the winner. Identical inputs always produce identical results.
func Analyze(in Input, opts Options) (Result, error) {
	windows := Generate(in.DurationSeconds, in.ClipLengths, in.Transcript, opts.MaxWindowsPerLength)
	if len(windows) == 0 {
		return Result{}, ErrNoCandidates
	}

	scorer := NewScorer(opts.Weights, opts.WordsPerSecond)
	scored := scorer.Score(windows, in.Transcript, in.Silences)
	for i := range scored {
		scored[i].HookStart = SelectHook(scored[i], in.Transcript, in.Silences, opts.HookScanSeconds)
	}
	ranked := Rank(scored)
	chosen := ranked[0]

	details := Details{
		ChosenStart:  chosen.Start,
		ChosenEnd:    chosen.End,
		HookStart:    chosen.HookStart,
		Improvements: Improvements(chosen, SilenceRatio(in.Silences, in.DurationSeconds)),
	}
	minRemoved := opts.MinMeaningfulEditSeconds
	if minRemoved <= 0 {
		minRemoved = DefaultMinMeaningfulEditSeconds
	}
	return Result{
		Candidates: ranked,
		Chosen:     chosen,
		Details:    details,
		Edit:       AssessEdit(in.DurationSeconds, details, minRemoved),
	}, nil
}

package analysis

// ReasonNoMeaningfulEdit flags a clip that is nearly the whole source.
const ReasonNoMeaningfulEdit = "no_meaningful_edit"

// DefaultMinMeaningfulEditSeconds is how much must be cut for an edit to count.
const DefaultMinMeaningfulEditSeconds = 3.0

// Improvement labels surfaced to clients.
const (
	ImprovementTrimmedIntro  = "Trimmed weak intro"
	ImprovementRemovedPauses = "Removed long pauses"
	ImprovementHighEnergy    = "Prioritized high-energy moments"
)

// AssessEdit compares the rendered span against the source. A clip that
// removes less than minRemoved seconds is still valid but flagged.
func AssessEdit(sourceSeconds float64, d Details, minRemoved float64) EditAssessment {
	if minRemoved < 0 {
		minRemoved = 0
	}
	clip := round(d.ClipSeconds(), 1e3)
	removed := round(sourceSeconds-clip, 1e3)
	if removed < 0 {
		removed = 0
	}
	out := EditAssessment{
		SourceSeconds:  round(sourceSeconds, 1e3),
		ClipSeconds:    clip,
		RemovedSeconds: removed,
		Meaningful:     removed >= minRemoved,
	}
	if !out.Meaningful {
		out.Reason = ReasonNoMeaningfulEdit
	}
	return out
}

// Improvements lists what the chosen clip does better than the raw source.
func Improvements(chosen Candidate, sourceSilenceRatio float64) []string {
	var out []string
	if chosen.HookStart > chosen.Start {
		out = append(out, ImprovementTrimmedIntro)
	}
	if chosen.SilenceRatio < sourceSilenceRatio {
		out = append(out, ImprovementRemovedPauses)
	}
	return append(out, ImprovementHighEnergy)
}

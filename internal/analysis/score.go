package analysis

import (
	"sort"
	"strings"
)

// Weights combine the per-window features into one score.
type Weights struct {
	Speech  float64
	Silence float64
	Energy  float64
}

// DefaultWeights favour dense speech and penalise dead air.
var DefaultWeights = Weights{Speech: 0.6, Silence: 0.3, Energy: 0.1}

// DefaultWordsPerSecond maps distinct-word rate onto an energy of 1.0.
const DefaultWordsPerSecond = 2.5

// Scorer turns windows into candidates.
type Scorer struct {
	Weights        Weights
	WordsPerSecond float64
}

// NewScorer returns a scorer, filling zero fields with the defaults.
func NewScorer(weights Weights, wordsPerSecond float64) Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	return Scorer{Weights: weights, WordsPerSecond: wordsPerSecond}
}

// Score computes speech density, silence ratio, energy and the combined score
// for each window, in input order. HookStart is left at the window start.
func (s Scorer) Score(windows []Window, transcript []Segment, silences []Interval) []Candidate {
	speech := mergeIntervals(segmentIntervals(transcript))
	quiet := mergeIntervals(silences)
	wps := s.WordsPerSecond
	if wps <= 0 {
		wps = DefaultWordsPerSecond
	}

	out := make([]Candidate, 0, len(windows))
	for _, w := range windows {
		span := w.Duration()
		c := Candidate{Start: w.Start, End: w.End, Length: w.Length, HookStart: w.Start}
		if span > 0 {
			c.SpeechDensity = round(clamp(coverage(speech, w.Start, w.End)/span, 0, 1), 1e6)
			c.SilenceRatio = round(clamp(coverage(quiet, w.Start, w.End)/span, 0, 1), 1e6)
			text := windowText(transcript, w.Start, w.End)
			rate := float64(distinctWords(text)) / span / wps
			c.Energy = round(clamp(rate+cueBonus(text), 0, 1), 1e6)
		}
		c.Score = round(s.Weights.Speech*c.SpeechDensity-
			s.Weights.Silence*c.SilenceRatio+
			s.Weights.Energy*c.Energy, 1e6)
		out = append(out, c)
	}
	return out
}

// windowText joins the text of segments overlapping [start, end).
func windowText(transcript []Segment, start, end float64) string {
	var b strings.Builder
	for _, seg := range transcript {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// Rank returns a copy ordered by score descending, then start ascending, then
// length ascending.
func Rank(candidates []Candidate) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Length < b.Length
	})
	return ranked
}

// Best returns the top-ranked candidate.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return Rank(candidates)[0], true
}

package analysis

import (
	"math"
	"sort"
)

// DefaultHookScanSeconds bounds how far past a candidate start the hook may move.
const DefaultHookScanSeconds = 3.0

// SelectHook picks where the rendered clip begins. It walks the candidate
// start and then each transcript segment start inside the scan window, taking
// the first point that is not inside a silence. When every point is silent it
// jumps to the end of the silence covering the start, if that lands inside the
// scan window. Otherwise it keeps the start.
//
// The result is always in [c.Start, c.End).
func SelectHook(c Candidate, transcript []Segment, silences []Interval, scanSeconds float64) float64 {
	if scanSeconds <= 0 {
		scanSeconds = DefaultHookScanSeconds
	}
	limit := math.Min(c.End, c.Start+scanSeconds)
	quiet := mergeIntervals(silences)

	if !silentAt(quiet, c.Start) {
		return c.Start
	}
	var points []float64
	for _, seg := range transcript {
		if seg.Start > c.Start && seg.Start < limit {
			points = append(points, seg.Start)
		}
	}
	sort.Float64s(points)
	for _, p := range points {
		if !silentAt(quiet, p) {
			return p
		}
	}
	for _, s := range quiet {
		if s.contains(c.Start) && s.End < limit {
			return s.End
		}
	}
	return c.Start
}

func silentAt(quiet []Interval, t float64) bool {
	for _, s := range quiet {
		if s.Start > t {
			return false
		}
		if s.contains(t) {
			return true
		}
	}
	return false
}

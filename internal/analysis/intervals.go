package analysis

import (
	"math"
	"sort"
)

// mergeIntervals returns the sorted union of ranges, dropping empty ones.
func mergeIntervals(ranges []Interval) []Interval {
	cleaned := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		if r.End > r.Start {
			cleaned = append(cleaned, r)
		}
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].Start != cleaned[j].Start {
			return cleaned[i].Start < cleaned[j].Start
		}
		return cleaned[i].End < cleaned[j].End
	})
	merged := make([]Interval, 0, len(cleaned))
	for _, r := range cleaned {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			merged[n-1].End = math.Max(merged[n-1].End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// coverage is the total length of merged inside [start, end).
func coverage(merged []Interval, start, end float64) float64 {
	total := 0.0
	for _, r := range merged {
		if r.End <= start {
			continue
		}
		if r.Start >= end {
			break
		}
		total += math.Min(r.End, end) - math.Max(r.Start, start)
	}
	return total
}

func segmentIntervals(transcript []Segment) []Interval {
	out := make([]Interval, 0, len(transcript))
	for _, seg := range transcript {
		out = append(out, Interval{Start: seg.Start, End: seg.End})
	}
	return out
}

// SilenceRatio is the fraction of [0, duration) covered by silence.
func SilenceRatio(silences []Interval, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return clamp(coverage(mergeIntervals(silences), 0, duration)/duration, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// round quantizes x to 1/scale.
func round(x, scale float64) float64 {
	return math.Round(x*scale) / scale
}

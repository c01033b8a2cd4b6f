package analysis

import (
	"math"
	"sort"
)

// DefaultMaxWindowsPerLength caps windows generated for a single clip length.
const DefaultMaxWindowsPerLength = 12

// Generate builds candidate windows for every requested clip length. Starts
// come from a sliding stride of max(L/2, 1) seconds plus every transcript
// segment start, shifted back so the window fits. Lengths longer than the
// source are skipped; a source shorter than every length yields a single
// window covering all of it.
//
// The result is ordered by length ascending, then start ascending. It is a
// pure function of its inputs.
func Generate(duration float64, lengths []int, transcript []Segment, maxPerLength int) []Window {
	if duration <= 0 {
		return nil
	}
	lengths = normalizeLengths(lengths)
	if len(lengths) == 0 {
		return nil
	}
	if maxPerLength <= 0 {
		maxPerLength = DefaultMaxWindowsPerLength
	}
	if duration < float64(lengths[0]) {
		return []Window{{Start: 0, End: duration, Length: lengths[0]}}
	}

	var windows []Window
	for _, length := range lengths {
		span := float64(length)
		if span > duration {
			continue
		}
		starts := windowStarts(duration, span, transcript)
		for _, start := range evenSubset(starts, maxPerLength) {
			windows = append(windows, Window{
				Start:  start,
				End:    math.Min(round(start+span, 1e3), duration),
				Length: length,
			})
		}
	}
	return windows
}

func normalizeLengths(lengths []int) []int {
	seen := make(map[int]struct{}, len(lengths))
	out := make([]int, 0, len(lengths))
	for _, l := range lengths {
		if l <= 0 {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// windowStarts returns sorted unique starts at millisecond precision. Starts
// are floored so a window shifted back to fit never ends past duration.
func windowStarts(duration, span float64, transcript []Segment) []float64 {
	latest := duration - span
	keys := map[int64]struct{}{}
	add := func(start float64) {
		start = clamp(start, 0, latest)
		keys[int64(math.Floor(start*1000+1e-6))] = struct{}{}
	}

	stride := math.Max(math.Floor(span/2), 1)
	for start := 0.0; start <= latest; start += stride {
		add(start)
	}
	add(latest)
	for _, seg := range transcript {
		if seg.Start < 0 || seg.Start >= duration {
			continue
		}
		add(seg.Start)
	}

	starts := make([]float64, 0, len(keys))
	for key := range keys {
		starts = append(starts, float64(key)/1000)
	}
	sort.Float64s(starts)
	return starts
}

// evenSubset keeps limit entries spread evenly across values, always
// including the first and the last.
func evenSubset(values []float64, limit int) []float64 {
	n := len(values)
	if n <= limit {
		return values
	}
	if limit == 1 {
		return values[:1]
	}
	out := make([]float64, 0, limit)
	last := -1
	for i := 0; i < limit; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(limit-1)))
		if idx == last {
			continue
		}
		last = idx
		out = append(out, values[idx])
	}
	return out
}

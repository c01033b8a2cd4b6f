package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"clipforge/internal/analysis"
)

var (
	reSilenceStart = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	reSilenceEnd   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)`)
)

// SilenceOptions configure silencedetect.
type SilenceOptions struct {
	NoiseDB    float64
	MinSeconds float64
}

// DetectSilence runs silencedetect over the source audio and returns the
// silence intervals clipped to [0, duration].
func (t *Tool) DetectSilence(ctx context.Context, source string, duration float64, opts SilenceOptions) ([]analysis.Interval, error) {
	if opts.NoiseDB >= 0 {
		opts.NoiseDB = -35
	}
	if opts.MinSeconds <= 0 {
		opts.MinSeconds = 0.5
	}
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(opts.NoiseDB, 'f', -1, 64),
		strconv.FormatFloat(opts.MinSeconds, 'f', -1, 64))
	res, err := t.run(ctx, "analyzing", []string{"-i", source, "-vn", "-af", filter, "-f", "null", "-"})
	if err != nil {
		return nil, err
	}
	return ParseSilence(res.Stderr, duration), nil
}

// ParseSilence reads silencedetect log lines. A trailing silence without an
// end runs to duration.
func ParseSilence(output []byte, duration float64) []analysis.Interval {
	var (
		out     []analysis.Interval
		start   float64
		pending bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := reSilenceStart.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start, pending = v, true
			}
			continue
		}
		if m := reSilenceEnd.FindStringSubmatch(line); m != nil && pending {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				out = appendInterval(out, start, v, duration)
			}
			pending = false
		}
	}
	if pending && duration > 0 {
		out = appendInterval(out, start, duration, duration)
	}
	return out
}

func appendInterval(out []analysis.Interval, start, end, duration float64) []analysis.Interval {
	if start < 0 {
		start = 0
	}
	if duration > 0 && end > duration {
		end = duration
	}
	if end <= start {
		return out
	}
	return append(out, analysis.Interval{Start: start, End: end})
}

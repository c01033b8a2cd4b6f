package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`

	Tags        map[string]string `json:"tags,omitempty"`
	Disposition map[string]int    `json:"disposition,omitempty"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Media is the subset of probe data the pipeline records on a job.
type Media struct {
	DurationSeconds float64
	Width           int
	Height          int
	HasAudio        bool
	HasVideo        bool
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, runner toolexec.Runner, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	res, err := runner.Run(ctx, toolexec.Command{
		Name:  binary,
		Args:  []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path},
		Stage: "probe",
	})
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(res.Stdout, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "parse output", err)
	}
	return result, nil
}

// Summarize extracts duration, first video geometry and audio presence. A
// missing or unparsable duration is a validation error.
func (r Result) Summarize() (Media, error) {
	duration := r.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		for _, stream := range r.Streams {
			if d := parseFloat(stream.Duration); !math.IsNaN(d) && d > duration {
				duration = d
			}
		}
	}
	if math.IsNaN(duration) || duration <= 0 {
		return Media{}, services.Wrap(services.ErrValidation, "probe", "duration",
			fmt.Sprintf("source has no readable duration (format %q)", r.Format.FormatName), nil)
	}
	m := Media{
		DurationSeconds: duration,
		HasAudio:        r.AudioStreamCount() > 0,
		HasVideo:        r.VideoStreamCount() > 0,
	}
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 {
			m.Width, m.Height = stream.Width, stream.Height
			break
		}
	}
	return m, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Profile is an encode target.
type Profile struct {
	Width        int
	Height       int
	Preset       string
	CRF          int
	AudioBitrate string
	// MaxSeconds caps the rendered duration; zero renders the whole span.
	MaxSeconds float64
	FastStart  bool
}

// DraftProfile is the quick low-resolution preview.
func DraftProfile(maxSeconds float64, width, height int, preset string, crf int) Profile {
	return Profile{Width: width, Height: height, Preset: preset, CRF: crf, AudioBitrate: "96k", MaxSeconds: maxSeconds}
}

// FinalProfile is the full-quality deliverable.
func FinalProfile(width, height int, preset string, crf int) Profile {
	return Profile{Width: width, Height: height, Preset: preset, CRF: crf, AudioBitrate: "192k", FastStart: true}
}

// RenderRequest describes one clip render.
type RenderRequest struct {
	SourcePath string
	// AudioPath, when set, replaces the source audio. It must start at Start.
	AudioPath  string
	Start      float64
	End        float64
	OutputPath string
}

// Duration is the span length before any profile cap.
func (r RenderRequest) Duration() float64 { return r.End - r.Start }

// Renderer produces draft and final clips.
type Renderer struct {
	Tool  *Tool
	Draft Profile
	Final Profile
}

// RenderDraft renders min(span, Draft.MaxSeconds) seconds from Start.
func (r *Renderer) RenderDraft(ctx context.Context, req RenderRequest) (string, error) {
	return r.render(ctx, "rendering_draft", "draft render", r.Draft, req)
}

// RenderFinal renders the whole span.
func (r *Renderer) RenderFinal(ctx context.Context, req RenderRequest) (string, error) {
	return r.render(ctx, "rendering_final", "final render", r.Final, req)
}

func (r *Renderer) render(ctx context.Context, stage, operation string, profile Profile, req RenderRequest) (string, error) {
	if req.End <= req.Start {
		return "", fmt.Errorf("%s: empty span [%v, %v)", operation, req.Start, req.End)
	}
	args := RenderArgs(profile, req)
	if err := r.Tool.produce(ctx, stage, operation, req.OutputPath, args); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

// RenderArgs builds the ffmpeg argument list for a render.
func RenderArgs(profile Profile, req RenderRequest) []string {
	duration := req.Duration()
	if profile.MaxSeconds > 0 {
		duration = math.Min(duration, profile.MaxSeconds)
	}
	args := []string{"-y", "-ss", seconds(req.Start), "-i", req.SourcePath}
	if req.AudioPath != "" {
		args = append(args, "-i", req.AudioPath, "-map", "0:v:0", "-map", "1:a:0")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "0:a:0?")
	}
	args = append(args,
		"-t", seconds(duration),
		"-vf", VerticalFilter(profile.Width, profile.Height),
		"-c:v", "libx264",
		"-preset", profile.Preset,
		"-crf", strconv.Itoa(profile.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", profile.AudioBitrate,
	)
	if profile.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-f", "mp4", partialPath(req.OutputPath))
}

// VerticalFilter scales to cover WxH and center-crops the overflow.
func VerticalFilter(width, height int) string {
	size := strconv.Itoa(width) + ":" + strconv.Itoa(height)
	return strings.Join([]string{
		"scale=" + size + ":force_original_aspect_ratio=increase",
		"crop=" + size,
	}, ",")
}

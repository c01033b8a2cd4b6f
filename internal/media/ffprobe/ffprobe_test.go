package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"

	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	media, err := result.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if media.Width != 1920 || media.Height != 1080 || !media.HasAudio || media.DurationSeconds != 123.45 {
		t.Fatalf("unexpected summary %+v", media)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if _, err := result.Summarize(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSummarizeFallsBackToStreamDuration(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", Duration: "8.0"}}}
	media, err := result.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if media.DurationSeconds != 8 || media.HasVideo {
		t.Fatalf("unexpected summary %+v", media)
	}
}

func TestInspectDecodesRunnerOutput(t *testing.T) {
	var got toolexec.Command
	runner := toolexec.RunnerFunc(func(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
		got = cmd
		return toolexec.Result{Stdout: []byte(`{"streams":[{"codec_type":"video","width":640,"height":360}],"format":{"duration":"8.000"}}`)}, nil
	})
	result, err := Inspect(context.Background(), runner, "", "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if got.Name != "ffprobe" || got.Args[len(got.Args)-1] != "/tmp/in.mp4" {
		t.Fatalf("unexpected command %+v", got)
	}
	if result.DurationSeconds() != 8 || result.Streams[0].Width != 640 {
		t.Fatalf("unexpected result %+v", result)
	}
}

package ffmpeg

import "context"

// EnhanceFilter denoises and normalizes loudness for spoken content.
const EnhanceFilter = "afftdn,loudnorm=I=-16:TP=-1.5:LRA=11"

// EnhanceRequest describes the audio span to clean up.
type EnhanceRequest struct {
	SourcePath string
	Start      float64
	End        float64
	OutputPath string
}

// Enhance writes the span's audio, denoised and loudness-normalized, as AAC.
// The output starts at Start so renders can map it directly.
func (t *Tool) Enhance(ctx context.Context, req EnhanceRequest) (string, error) {
	args := []string{
		"-y",
		"-ss", seconds(req.Start),
		"-i", req.SourcePath,
		"-t", seconds(req.End - req.Start),
		"-vn",
		"-af", EnhanceFilter,
		"-c:a", "aac",
		"-b:a", "192k",
		"-f", "mp4",
		partialPath(req.OutputPath),
	}
	if err := t.produce(ctx, "enhancing_audio", "enhance audio", req.OutputPath, args); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

package stages

import (
	"context"
	"os/exec"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/toolexec"
	"clipforge/internal/media/whisper"
	"clipforge/internal/stage"
)

// Toolchain bundles the external tools shared by all stages.
type Toolchain struct {
	Runner  toolexec.Runner
	FFprobe string
	FFmpeg  *ffmpeg.Tool
	Whisper *whisper.Transcriber
}

// NewToolchain wires the configured binaries to runner.
func NewToolchain(cfg *config.Config, runner toolexec.Runner) Toolchain {
	return Toolchain{
		Runner:  runner,
		FFprobe: cfg.Tools.FFprobe,
		FFmpeg:  ffmpeg.New(cfg.Tools.FFmpeg, runner),
		Whisper: whisper.New(whisper.Options{
			Binary:   cfg.Tools.Whisper,
			Model:    cfg.Tools.WhisperModel,
			Language: cfg.Tools.Language,
		}, runner),
	}
}

// binaryHealth reports the first missing binary, if any.
func binaryHealth(_ context.Context, name string, binaries ...string) stage.Health {
	for _, binary := range binaries {
		binary = strings.TrimSpace(binary)
		if binary == "" {
			return stage.Unhealthy(name, "binary not configured")
		}
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, "binary "+binary+" not found")
		}
	}
	return stage.Healthy(name)
}

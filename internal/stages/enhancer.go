package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/storage"
)

const enhancedAudioName = "enhanced.m4a"

// Enhancer denoises and loudness-normalizes the chosen span when the render
// trigger asked for it.
type Enhancer struct {
	tools   Toolchain
	storage storage.Storage
	logger  *slog.Logger
}

// NewEnhancer constructs the audio enhancement stage handler.
func NewEnhancer(tools Toolchain, store storage.Storage, logger *slog.Logger) *Enhancer {
	return &Enhancer{tools: tools, storage: store, logger: logging.NewComponentLogger(logger, "enhancer")}
}

func (e *Enhancer) Prepare(_ context.Context, job *jobs.Job) error {
	if job.Details == nil {
		return services.Wrap(services.ErrValidation, "enhancing_audio", "prepare", "analysis details missing", nil)
	}
	if job.SoundEnhance {
		job.Message = "Enhancing audio"
	}
	return nil
}

func (e *Enhancer) Execute(ctx context.Context, job *jobs.Job) error {
	logger := stage.Logger(ctx, e.logger)
	if !job.SoundEnhance {
		job.Message = "Sound enhancement skipped"
		job.Log("Sound enhancement skipped")
		logger.Debug("sound enhancement not requested")
		return nil
	}

	dir, err := e.storage.JobDir(job.ID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "enhancing_audio", "job dir", "output directory unavailable", err)
	}
	path, err := e.tools.FFmpeg.Enhance(ctx, ffmpeg.EnhanceRequest{
		SourcePath: job.SourcePath,
		Start:      job.Details.HookStart,
		End:        job.Details.ChosenEnd,
		OutputPath: filepath.Join(dir, enhancedAudioName),
	})
	if err != nil {
		return err
	}
	job.EnhancedAudioPath = path
	job.Message = "Audio enhanced"
	job.Log(fmt.Sprintf("Enhanced audio for %.2fs-%.2fs", job.Details.HookStart, job.Details.ChosenEnd))
	logger.Info("audio enhanced", logging.String("output_file", path))
	return nil
}

func (e *Enhancer) HealthCheck(ctx context.Context) stage.Health {
	if e.tools.FFmpeg == nil {
		return stage.Unhealthy("enhancer", "ffmpeg not configured")
	}
	return binaryHealth(ctx, "enhancer", e.tools.FFmpeg.Binary)
}

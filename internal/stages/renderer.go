package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/storage"
)

// Phase selects which render a Renderer performs.
type Phase string

const (
	PhaseDraft Phase = "draft"
	PhaseFinal Phase = "final"
)

// Renderer runs one of the two renders. The draft renderer leaves the job in
// draft_ready with its URL; the final renderer finishes it.
type Renderer struct {
	phase    Phase
	renderer *ffmpeg.Renderer
	storage  storage.Storage
	logger   *slog.Logger
}

// NewRenderers builds the draft and final render stage handlers from the
// [render] section.
func NewRenderers(cfg *config.Config, tools Toolchain, store storage.Storage, logger *slog.Logger) (draft, final *Renderer) {
	r := &ffmpeg.Renderer{
		Tool:  tools.FFmpeg,
		Draft: ffmpeg.DraftProfile(cfg.Render.DraftMaxSeconds, cfg.Render.DraftWidth, cfg.Render.DraftHeight, cfg.Render.DraftPreset, cfg.Render.DraftCRF),
		Final: ffmpeg.FinalProfile(cfg.Render.FinalWidth, cfg.Render.FinalHeight, cfg.Render.FinalPreset, cfg.Render.FinalCRF),
	}
	draft = &Renderer{phase: PhaseDraft, renderer: r, storage: store, logger: logging.NewComponentLogger(logger, "draft-renderer")}
	final = &Renderer{phase: PhaseFinal, renderer: r, storage: store, logger: logging.NewComponentLogger(logger, "final-renderer")}
	return draft, final
}

func (r *Renderer) fileName() string {
	return string(r.phase) + ".mp4"
}

func (r *Renderer) stageName() string {
	if r.phase == PhaseDraft {
		return string(jobs.StatusRenderingDraft)
	}
	return string(jobs.StatusRenderingFinal)
}

func (r *Renderer) Prepare(_ context.Context, job *jobs.Job) error {
	if job.Details == nil {
		return services.Wrap(services.ErrValidation, r.stageName(), "prepare", "analysis details missing", nil)
	}
	if r.phase == PhaseFinal && job.DraftURL == "" {
		return services.Wrap(services.ErrValidation, r.stageName(), "prepare", "final render requires a draft", nil)
	}
	if r.phase == PhaseDraft {
		job.Message = "Rendering draft preview"
	} else {
		job.Message = "Rendering final clip"
	}
	return nil
}

func (r *Renderer) Execute(ctx context.Context, job *jobs.Job) error {
	logger := stage.Logger(ctx, r.logger)
	dir, err := r.storage.JobDir(job.ID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, r.stageName(), "job dir", "output directory unavailable", err)
	}
	req := ffmpeg.RenderRequest{
		SourcePath: job.SourcePath,
		AudioPath:  job.EnhancedAudioPath,
		Start:      job.Details.HookStart,
		End:        job.Details.ChosenEnd,
		OutputPath: filepath.Join(dir, r.fileName()),
	}

	started := time.Now()
	var path string
	if r.phase == PhaseDraft {
		path, err = r.renderer.RenderDraft(ctx, req)
	} else {
		path, err = r.renderer.RenderFinal(ctx, req)
	}
	if err != nil {
		return err
	}
	url, err := r.storage.SignedURL(job.ID, r.fileName())
	if err != nil {
		return fmt.Errorf("sign %s url: %w", r.phase, err)
	}

	if r.phase == PhaseDraft {
		job.DraftPath = path
		job.DraftURL = url
		job.Log("Draft ready: " + url)
		job.SetStatus(jobs.StatusDraftReady, "Draft ready")
	} else {
		job.FinalPath = path
		job.FinalURL = url
		job.Log("Final clip ready: " + url)
		message := "Clip ready"
		if job.Edit != nil && !job.Edit.Meaningful {
			message = "Clip ready; no meaningful edit"
		}
		job.SetStatus(jobs.StatusDone, message)
	}
	logger.Info("render complete",
		logging.String("phase", string(r.phase)),
		logging.String("output_file", path),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	name := string(r.phase) + "-renderer"
	if r.renderer == nil || r.renderer.Tool == nil {
		return stage.Unhealthy(name, "ffmpeg not configured")
	}
	return binaryHealth(ctx, name, r.renderer.Tool.Binary)
}

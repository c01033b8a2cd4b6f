package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/config"
	"clipforge/internal/entitlement"
	"clipforge/internal/jobs"
	"clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/media/audio"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/storage"
)

const stageAnalyzing = "analyzing"

// Analyzer probes the source, transcribes it, detects silence and picks the
// clip. On success the job carries its transcript, candidates and details and
// is left awaiting a render trigger.
type Analyzer struct {
	tools    Toolchain
	storage  storage.Storage
	checker  entitlement.Checker
	options  analysis.Options
	silence  ffmpeg.SilenceOptions
	language string
	logger   *slog.Logger
}

// NewAnalyzer constructs the analysis stage handler.
func NewAnalyzer(cfg *config.Config, tools Toolchain, store storage.Storage, checker entitlement.Checker, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		tools:   tools,
		storage: store,
		checker: checker,
		options: AnalysisOptions(cfg),
		silence: ffmpeg.SilenceOptions{
			NoiseDB:    cfg.Analysis.SilenceNoiseDB,
			MinSeconds: cfg.Analysis.SilenceMinSeconds,
		},
		language: cfg.Tools.Language,
		logger:   logging.NewComponentLogger(logger, "analyzer"),
	}
}

// AnalysisOptions maps the [analysis] section onto analysis.Options.
func AnalysisOptions(cfg *config.Config) analysis.Options {
	return analysis.Options{
		Weights: analysis.Weights{
			Speech:  cfg.Analysis.SpeechWeight,
			Silence: cfg.Analysis.SilenceWeight,
			Energy:  cfg.Analysis.EnergyWeight,
		},
		WordsPerSecond:           cfg.Analysis.EnergyWordsPerSecond,
		MaxWindowsPerLength:      cfg.Analysis.MaxWindowsPerLength,
		HookScanSeconds:          cfg.Analysis.HookScanSeconds,
		MinMeaningfulEditSeconds: cfg.Analysis.MinMeaningfulEditSeconds,
	}
}

func (a *Analyzer) Prepare(ctx context.Context, job *jobs.Job) error {
	if job.SourcePath == "" {
		return services.Wrap(services.ErrValidation, stageAnalyzing, "prepare", "job has no resolved source", nil)
	}
	if len(job.ClipLengths) == 0 {
		return services.Wrap(services.ErrValidation, stageAnalyzing, "prepare", "job has no clip lengths", nil)
	}
	job.Message = "Analyzing source"
	stage.Logger(ctx, a.logger).Debug("analysis prepared",
		logging.String("source_file", job.SourcePath),
		logging.Any("clip_lengths", job.ClipLengths),
	)
	return nil
}

func (a *Analyzer) Execute(ctx context.Context, job *jobs.Job) error {
	logger := stage.Logger(ctx, a.logger)

	media, track, err := a.probe(ctx, job)
	if err != nil {
		return err
	}
	job.Duration = media.DurationSeconds
	job.Width, job.Height = media.Width, media.Height
	job.Log(fmt.Sprintf("Probed source: %.2fs %dx%d, audio %s", media.DurationSeconds, media.Width, media.Height, track.Label()))

	dir, err := a.storage.JobDir(job.ID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageAnalyzing, "job dir", "output directory unavailable", err)
	}

	wav := filepath.Join(dir, "audio.wav")
	if err := a.tools.FFmpeg.ExtractAudio(ctx, job.SourcePath, wav, track.Ordinal); err != nil {
		return err
	}
	defer os.Remove(wav)

	transcribeStart := time.Now()
	transcript, language, err := a.tools.Whisper.Transcribe(ctx, wav, dir, a.languageHint(track))
	if err != nil {
		return err
	}
	logger.Info("transcription complete",
		logging.Int("segments", len(transcript)),
		logging.String("language", language),
		logging.Duration("elapsed", time.Since(transcribeStart)),
	)
	job.Log(fmt.Sprintf("Transcribed %d segments", len(transcript)))

	silences, err := a.tools.FFmpeg.DetectSilence(ctx, job.SourcePath, media.DurationSeconds, a.silence)
	if err != nil {
		return err
	}
	job.Log(fmt.Sprintf("Detected %d silence intervals", len(silences)))

	result, err := analysis.Analyze(analysis.Input{
		DurationSeconds: media.DurationSeconds,
		ClipLengths:     job.ClipLengths,
		Transcript:      transcript,
		Silences:        silences,
	}, a.options)
	if err != nil {
		if errors.Is(err, analysis.ErrNoCandidates) {
			return services.Wrap(services.ErrValidation, stageAnalyzing, "candidates", "no candidate windows for source", err)
		}
		return err
	}

	job.Transcript = transcript
	job.Silences = silences
	job.Candidates = result.Candidates
	details := result.Details
	edit := result.Edit
	job.Details = &details
	job.Edit = &edit
	job.AwaitingRender = true

	if err := writeReport(filepath.Join(dir, "analysis.json"), job, language); err != nil {
		logging.WarnWithContext(logger, "analysis report not written", "analysis_report_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
		)
	}

	job.Log(fmt.Sprintf("Selected clip %.2fs-%.2fs (hook at %.2fs, score %.3f) from %d candidates",
		details.ChosenStart, details.ChosenEnd, details.HookStart, result.Chosen.Score, len(result.Candidates)))
	if !edit.Meaningful {
		job.Log(fmt.Sprintf("Clip removes only %.2fs of the source: %s", edit.RemovedSeconds, edit.Reason))
	}
	job.SetStatus(jobs.StatusAnalyzing, "Analysis complete; awaiting render")
	logger.Info("analysis complete",
		logging.Int("candidates", len(result.Candidates)),
		logging.Float64("chosen_start", details.ChosenStart),
		logging.Float64("chosen_end", details.ChosenEnd),
		logging.Float64("hook_start", details.HookStart),
		logging.Bool("meaningful_edit", edit.Meaningful),
	)
	return nil
}

func (a *Analyzer) probe(ctx context.Context, job *jobs.Job) (ffprobe.Media, audio.Selection, error) {
	none := audio.Selection{Ordinal: -1}
	result, err := ffprobe.Inspect(ctx, a.tools.Runner, a.tools.FFprobe, job.SourcePath)
	if err != nil {
		return ffprobe.Media{}, none, err
	}
	media, err := result.Summarize()
	if err != nil {
		return ffprobe.Media{}, none, err
	}
	if !media.HasVideo {
		return ffprobe.Media{}, none, services.Wrap(services.ErrValidation, stageAnalyzing, "probe", "source has no video stream", nil)
	}
	track := audio.Select(result.Streams, a.language)
	if !media.HasAudio || !track.Found() {
		return ffprobe.Media{}, none, services.Wrap(services.ErrValidation, stageAnalyzing, "probe", "source has no audio stream", nil)
	}
	if a.checker != nil {
		limit, err := a.checker.MaxSourceSeconds(ctx, job.UserID)
		if err != nil {
			return ffprobe.Media{}, none, fmt.Errorf("entitlement lookup: %w", err)
		}
		if limit > 0 && media.DurationSeconds > limit {
			return ffprobe.Media{}, none, services.Wrap(services.ErrValidation, stageAnalyzing, "probe",
				fmt.Sprintf("source is %.0fs, plan allows at most %.0fs", media.DurationSeconds, limit), nil)
		}
	}
	return media, track, nil
}

// languageHint pins whisper to the configured language, or to the selected
// track's tagged language when detection is on.
func (a *Analyzer) languageHint(track audio.Selection) string {
	if a.language != "" && a.language != language.Auto {
		return a.language
	}
	return track.Language
}

func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	binaries := []string{a.tools.FFprobe}
	if a.tools.FFmpeg != nil {
		binaries = append(binaries, a.tools.FFmpeg.Binary)
	}
	if a.tools.Whisper != nil {
		binaries = append(binaries, a.tools.Whisper.Binary())
	}
	return binaryHealth(ctx, "analyzer", binaries...)
}

type report struct {
	JobID      string                   `json:"jobId"`
	Duration   float64                  `json:"duration"`
	Language   string                   `json:"language,omitempty"`
	Segments   int                      `json:"segments"`
	Silences   []analysis.Interval      `json:"silences"`
	Candidates []analysis.Candidate     `json:"candidates"`
	Details    *analysis.Details        `json:"details"`
	Edit       *analysis.EditAssessment `json:"edit"`
}

func writeReport(path string, job *jobs.Job, language string) error {
	payload, err := json.MarshalIndent(report{
		JobID:      job.ID,
		Duration:   job.Duration,
		Language:   language,
		Segments:   len(job.Transcript),
		Silences:   job.Silences,
		Candidates: job.Candidates,
		Details:    job.Details,
		Edit:       job.Edit,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

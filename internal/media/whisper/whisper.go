package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clipforge/internal/analysis"
	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

// Options configure a transcription run.
type Options struct {
	Binary   string
	Model    string
	Language string
	Threads  int
}

// Transcriber runs whisper-cli.
type Transcriber struct {
	opts   Options
	runner toolexec.Runner
}

// New returns a transcriber.
func New(opts Options, runner toolexec.Runner) *Transcriber {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "whisper-cli"
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "auto"
	}
	return &Transcriber{opts: opts, runner: runner}
}

// Binary is the whisper-cli executable this transcriber invokes.
func (t *Transcriber) Binary() string { return t.opts.Binary }

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text   string `json:"text"`
		Tokens []struct {
			Text string   `json:"text"`
			P    *float64 `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// Transcribe converts a 16 kHz mono WAV into transcript segments. The JSON
// sidecar is written under workDir. A non-empty lang overrides the configured
// language for this run.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, workDir, lang string) ([]analysis.Segment, string, error) {
	if strings.TrimSpace(t.opts.Model) == "" {
		return nil, "", services.Wrap(services.ErrConfiguration, "analyzing", "whisper", "tools.whisper_model is not set", nil)
	}
	if strings.TrimSpace(lang) == "" {
		lang = t.opts.Language
	}
	base := filepath.Join(workDir, "transcript")
	args := []string{
		"-m", t.opts.Model,
		"-f", wavPath,
		"-l", lang,
		"-ojf",
		"-of", base,
		"-np",
	}
	if t.opts.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(t.opts.Threads))
	}
	if _, err := t.runner.Run(ctx, toolexec.Command{Name: t.opts.Binary, Args: args, Stage: "analyzing"}); err != nil {
		return nil, "", err
	}

	jsonPath := base + ".json"
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "analyzing", "whisper", "transcript output missing", err)
	}
	segments, language, err := Parse(data)
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "analyzing", "whisper", "invalid transcript", err)
	}
	return segments, language, nil
}

// Parse validates and decodes whisper-cli JSON output. Segments are sorted
// by start; empty text is dropped. Confidence is the mean token probability,
// or 1 when the output carries no tokens.
func Parse(data []byte) ([]analysis.Segment, string, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, "", err
	}
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, "", fmt.Errorf("decode transcript: %w", err)
	}

	segments := make([]analysis.Segment, 0, len(out.Transcription))
	for _, entry := range out.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" || entry.Offsets.To <= entry.Offsets.From {
			continue
		}
		confidence, counted := 0.0, 0
		for _, tok := range entry.Tokens {
			if tok.P == nil || strings.HasPrefix(tok.Text, "[_") {
				continue
			}
			confidence += *tok.P
			counted++
		}
		if counted > 0 {
			confidence /= float64(counted)
		} else {
			confidence = 1
		}
		segments = append(segments, analysis.Segment{
			Start:      float64(entry.Offsets.From) / 1000,
			End:        float64(entry.Offsets.To) / 1000,
			Text:       text,
			Confidence: confidence,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return segments, out.Result.Language, nil
}

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

// Tool wraps the ffmpeg binary behind a runner.
type Tool struct {
	Binary string
	Runner toolexec.Runner
}

// New returns a Tool; an empty binary means "ffmpeg" from PATH.
func New(binary string, runner toolexec.Runner) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{Binary: binary, Runner: runner}
}

func (t *Tool) run(ctx context.Context, stage string, args []string) (toolexec.Result, error) {
	base := []string{"-hide_banner", "-nostdin", "-loglevel", "info"}
	return t.Runner.Run(ctx, toolexec.Command{
		Name:  t.Binary,
		Args:  append(base, args...),
		Stage: stage,
	})
}

// ExtractAudio writes a 16 kHz mono PCM WAV for transcription from the
// audio stream at ordinal (-1 lets ffmpeg choose).
func (t *Tool) ExtractAudio(ctx context.Context, source, output string, ordinal int) error {
	args := []string{"-y", "-i", source}
	if ordinal >= 0 {
		args = append(args, "-map", "0:a:"+strconv.Itoa(ordinal))
	}
	args = append(args,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		partialPath(output),
	)
	return t.produce(ctx, "analyzing", "extract audio", output, args)
}

// produce runs ffmpeg writing to output's partial path and promotes it.
func (t *Tool) produce(ctx context.Context, stage, operation, output string, args []string) error {
	partial := partialPath(output)
	_ = os.Remove(partial)
	if _, err := t.run(ctx, stage, args); err != nil {
		_ = os.Remove(partial)
		return err
	}
	if err := promote(partial, output); err != nil {
		return services.Wrap(services.ErrExternalTool, stage, operation, "ffmpeg produced no output", err)
	}
	return nil
}

// partialPath keeps the temporary file hidden next to the destination.
func partialPath(output string) string {
	return filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+".partial")
}

func promote(partial, output string) error {
	info, err := os.Stat(partial)
	if err != nil {
		return fmt.Errorf("stat %s: %w", partial, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(partial)
		return errors.New("output file is empty")
	}
	if err := os.Rename(partial, output); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("rename %s: %w", partial, err)
	}
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

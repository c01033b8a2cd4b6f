package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipforge/internal/media/toolexec"
	"clipforge/internal/services"
)

// FakeSegment is one transcript line served by FakeTools.
type FakeSegment struct {
	Start float64
	End   float64
	Text  string
}

// FakeTools stands in for ffprobe, ffmpeg and whisper-cli. It answers probes
// from its fields, writes placeholder output files, and serves silencedetect
// output on stderr. Fail and Block let tests inject failures or hang a
// specific invocation until its context ends.
type FakeTools struct {
	Duration float64
	Width    int
	Height   int
	NoAudio  bool
	// AudioLanguage tags the audio stream, e.g. "spa".
	AudioLanguage string
	Segments      []FakeSegment
	Silences      [][2]float64

	// Fail returns a non-nil error to make the invocation fail.
	Fail func(cmd toolexec.Command) error
	// Block reports whether the invocation should wait for cancellation.
	Block func(cmd toolexec.Command) bool
	// Delay holds the invocation for the returned duration before it runs.
	Delay func(cmd toolexec.Command) time.Duration

	mu      sync.Mutex
	calls   []toolexec.Command
	blocked chan toolexec.Command
}

// NewFakeTools returns a fake for a 1920x1080 source with audio.
func NewFakeTools(duration float64, segments ...FakeSegment) *FakeTools {
	return &FakeTools{
		Duration: duration,
		Width:    1920,
		Height:   1080,
		Segments: segments,
		blocked:  make(chan toolexec.Command, 16),
	}
}

// Blocked delivers each command that entered Block.
func (f *FakeTools) Blocked() <-chan toolexec.Command {
	return f.blocked
}

// Calls returns the recorded invocations in order.
func (f *FakeTools) Calls() []toolexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolexec.Command(nil), f.calls...)
}

// CallsTo returns invocations whose stage matches.
func (f *FakeTools) CallsTo(stage string) []toolexec.Command {
	var out []toolexec.Command
	for _, c := range f.Calls() {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// Run implements toolexec.Runner.
func (f *FakeTools) Run(ctx context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Delay != nil {
		if d := f.Delay(cmd); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return toolexec.Result{}, services.Wrap(services.ErrCanceled, cmd.Stage, filepath.Base(cmd.Name), "canceled", ctx.Err())
			}
		}
	}
	if f.Block != nil && f.Block(cmd) {
		select {
		case f.blocked <- cmd:
		default:
		}
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			return toolexec.Result{}, services.Wrap(services.ErrTimeout, cmd.Stage, filepath.Base(cmd.Name), "deadline exceeded", ctx.Err())
		}
		return toolexec.Result{}, services.Wrap(services.ErrCanceled, cmd.Stage, filepath.Base(cmd.Name), "canceled", ctx.Err())
	}
	if f.Fail != nil {
		if err := f.Fail(cmd); err != nil {
			return toolexec.Result{Stderr: []byte(err.Error())}, err
		}
	}

	switch name := filepath.Base(cmd.Name); {
	case strings.Contains(name, "ffprobe"):
		return toolexec.Result{Stdout: f.probeJSON()}, nil
	case strings.Contains(name, "whisper"):
		return toolexec.Result{}, f.writeTranscript(cmd.Args)
	default:
		return f.ffmpeg(cmd.Args)
	}
}

func (f *FakeTools) probeJSON() []byte {
	streams := []map[string]any{
		{"index": 0, "codec_type": "video", "codec_name": "h264", "width": f.Width, "height": f.Height},
	}
	if !f.NoAudio {
		audioStream := map[string]any{"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2}
		if f.AudioLanguage != "" {
			audioStream["tags"] = map[string]string{"language": f.AudioLanguage}
		}
		streams = append(streams, audioStream)
	}
	payload, _ := json.Marshal(map[string]any{
		"streams": streams,
		"format": map[string]any{
			"filename":    "source.mp4",
			"nb_streams":  len(streams),
			"duration":    fmt.Sprintf("%.3f", f.Duration),
			"size":        "1024",
			"format_name": "mov,mp4,m4a,3gp,3g2,mj2",
		},
	})
	return payload
}

func (f *FakeTools) writeTranscript(args []string) error {
	base := argAfter(args, "-of")
	if base == "" {
		return fmt.Errorf("fake whisper: missing -of")
	}
	type offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	}
	type entry struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
	}
	out := struct {
		Result        map[string]string `json:"result"`
		Transcription []entry           `json:"transcription"`
	}{Result: map[string]string{"language": "en"}, Transcription: []entry{}}
	for _, seg := range f.Segments {
		out.Transcription = append(out.Transcription, entry{
			Offsets: offsets{From: int64(seg.Start * 1000), To: int64(seg.End * 1000)},
			Text:    " " + seg.Text,
		})
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(base+".json", payload, 0o644)
}

func (f *FakeTools) ffmpeg(args []string) (toolexec.Result, error) {
	if len(args) == 0 {
		return toolexec.Result{}, fmt.Errorf("fake ffmpeg: no arguments")
	}
	target := args[len(args)-1]
	if target == "-" {
		var b strings.Builder
		for _, s := range f.Silences {
			fmt.Fprintf(&b, "[silencedetect @ 0x1] silence_start: %.3f\n", s[0])
			fmt.Fprintf(&b, "[silencedetect @ 0x1] silence_end: %.3f | silence_duration: %.3f\n", s[1], s[1]-s[0])
		}
		return toolexec.Result{Stderr: []byte(b.String())}, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return toolexec.Result{}, err
	}
	return toolexec.Result{}, os.WriteFile(target, []byte("fake media"), 0o644)
}

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"clipforge/internal/config"
)

// Requirement defines an external dependency clipforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries the pipeline shells out to.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Audio extraction, silence detection, enhancement and rendering"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Media metadata probe"},
		{Name: "whisper.cpp", Command: cfg.Tools.Whisper, Description: "Speech transcription"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckModel reports whether the configured whisper model file is readable.
func CheckModel(path string) Status {
	status := Status{Name: "Whisper model", Command: strings.TrimSpace(path), Description: "ggml model passed to whisper.cpp"}
	if status.Command == "" {
		status.Detail = "tools.whisper_model not configured"
		return status
	}
	info, err := os.Stat(status.Command)
	switch {
	case err != nil:
		status.Detail = fmt.Sprintf("model %q not readable: %v", status.Command, err)
	case info.IsDir():
		status.Detail = fmt.Sprintf("model %q is a directory", status.Command)
	default:
		status.Available = true
	}
	return status
}

// CheckAll runs every binary check plus the model check.
func CheckAll(cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	if cfg != nil {
		results = append(results, CheckModel(cfg.Tools.WhisperModel))
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			names = append(names, s.Name)
		}
	}
	return names
}

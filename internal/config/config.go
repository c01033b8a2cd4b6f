package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// API contains HTTP listener configuration.
type API struct {
	Bind          string   `toml:"bind"`
	Token         string   `toml:"token"`
	PublicBaseURL string   `toml:"public_base_url"`
	CORSOrigins   []string `toml:"cors_origins"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	Whisper      string `toml:"whisper"`
	WhisperModel string `toml:"whisper_model"`
	Language     string `toml:"language"`
}

// Analysis holds the candidate generation and scoring knobs.
type Analysis struct {
	SpeechWeight             float64 `toml:"speech_weight"`
	SilenceWeight            float64 `toml:"silence_weight"`
	EnergyWeight             float64 `toml:"energy_weight"`
	EnergyWordsPerSecond     float64 `toml:"energy_words_per_second"`
	MaxWindowsPerLength      int     `toml:"max_windows_per_length"`
	HookScanSeconds          float64 `toml:"hook_scan_seconds"`
	MinMeaningfulEditSeconds float64 `toml:"min_meaningful_edit_seconds"`
	SilenceNoiseDB           float64 `toml:"silence_noise_db"`
	SilenceMinSeconds        float64 `toml:"silence_min_seconds"`
	MinClipSeconds           int     `toml:"min_clip_seconds"`
	MaxClipSeconds           int     `toml:"max_clip_seconds"`
}

// Render holds encoder geometry and presets for both render phases.
type Render struct {
	DraftMaxSeconds float64 `toml:"draft_max_seconds"`
	DraftWidth      int     `toml:"draft_width"`
	DraftHeight     int     `toml:"draft_height"`
	DraftPreset     string  `toml:"draft_preset"`
	DraftCRF        int     `toml:"draft_crf"`
	FinalWidth      int     `toml:"final_width"`
	FinalHeight     int     `toml:"final_height"`
	FinalPreset     string  `toml:"final_preset"`
	FinalCRF        int     `toml:"final_crf"`
}

// Workflow contains per-stage timeouts in seconds and the concurrency bound.
type Workflow struct {
	MaxConcurrentJobs    int `toml:"max_concurrent_jobs"`
	AnalyzeTimeout       int `toml:"analyze_timeout"`
	EnhanceTimeout       int `toml:"enhance_timeout"`
	DraftTimeout         int `toml:"draft_timeout"`
	FinalTimeout         int `toml:"final_timeout"`
	IntakeWaitTimeout    int `toml:"intake_wait_timeout"`
	EventBufferPerJob    int `toml:"event_buffer_per_job"`
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

// Entitlement configures the render quota ledger.
type Entitlement struct {
	Enforce     bool   `toml:"enforce"`
	DefaultPlan string `toml:"default_plan"`
	PeriodDays  int    `toml:"period_days"`
}

// Storage configures signed output URLs.
type Storage struct {
	SigningKey    string `toml:"signing_key"`
	URLTTLSeconds int    `toml:"url_ttl_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	DraftReady     bool   `toml:"draft_ready"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: upload, output, state and log directories
//   - API: HTTP bind address, bearer token, public URL, CORS origins
//   - Tools: ffmpeg/ffprobe/whisper binaries and model
//   - Analysis: scoring weights, candidate caps, hook and edit thresholds
//   - Render: draft and final encoder settings
//   - Workflow: stage timeouts and concurrency
//   - Entitlement: render quota enforcement
//   - Storage: URL signing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Tools         Tools         `toml:"tools"`
	Analysis      Analysis      `toml:"analysis"`
	Render        Render        `toml:"render"`
	Workflow      Workflow      `toml:"workflow"`
	Entitlement   Entitlement   `toml:"entitlement"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is applied to the process environment first so env
// fallbacks see it. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding job snapshots and the quota ledger.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "clipforge.db")
}

// LockPath is the single-instance lock file for the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "clipforge.lock")
}

// StageTimeouts converts the configured seconds into durations.
func (c *Config) StageTimeouts() StageTimeouts {
	return StageTimeouts{
		Analyze: seconds(c.Workflow.AnalyzeTimeout),
		Enhance: seconds(c.Workflow.EnhanceTimeout),
		Draft:   seconds(c.Workflow.DraftTimeout),
		Final:   seconds(c.Workflow.FinalTimeout),
	}
}

// StageTimeouts bounds each pipeline stage.
type StageTimeouts struct {
	Analyze time.Duration
	Enhance time.Duration
	Draft   time.Duration
	Final   time.Duration
}

// URLTTL returns how long signed output URLs stay valid.
func (c *Config) URLTTL() time.Duration {
	return seconds(c.Storage.URLTTLSeconds)
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

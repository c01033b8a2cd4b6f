package config

import (
	"fmt"
	"os"
	"strings"

	"clipforge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeTools()
	c.normalizeAnalysis()
	c.normalizeRender()
	c.normalizeWorkflow()
	c.normalizeEntitlement()
	c.normalizeStorage()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	c.API.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PublicBaseURL), "/")
	if c.API.PublicBaseURL == "" {
		c.API.PublicBaseURL = "http://" + c.API.Bind
	}
	origins := make([]string, 0, len(c.API.CORSOrigins))
	seen := make(map[string]struct{}, len(c.API.CORSOrigins))
	for _, origin := range c.API.CORSOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	c.API.CORSOrigins = origins
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = defaultString(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.FFprobe = defaultString(c.Tools.FFprobe, defaultFFprobe)
	c.Tools.Whisper = defaultString(c.Tools.Whisper, defaultWhisper)
	c.Tools.Language = strings.ToLower(defaultString(c.Tools.Language, defaultLanguage))
	if code, err := language.Whisper(c.Tools.Language); err == nil {
		c.Tools.Language = code
	}
	c.Tools.WhisperModel = strings.TrimSpace(c.Tools.WhisperModel)
	if c.Tools.WhisperModel == "" {
		if value, ok := os.LookupEnv("WHISPER_MODEL"); ok {
			c.Tools.WhisperModel = strings.TrimSpace(value)
		}
	}
	if c.Tools.WhisperModel != "" {
		if expanded, err := expandPath(c.Tools.WhisperModel); err == nil {
			c.Tools.WhisperModel = expanded
		}
	}
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.EnergyWordsPerSecond <= 0 {
		c.Analysis.EnergyWordsPerSecond = defaultEnergyWordsPerSecond
	}
	if c.Analysis.MaxWindowsPerLength <= 0 {
		c.Analysis.MaxWindowsPerLength = defaultMaxWindowsPerLength
	}
	if c.Analysis.HookScanSeconds <= 0 {
		c.Analysis.HookScanSeconds = defaultHookScanSeconds
	}
	if c.Analysis.SilenceMinSeconds <= 0 {
		c.Analysis.SilenceMinSeconds = defaultSilenceMinSeconds
	}
	if c.Analysis.SilenceNoiseDB == 0 {
		c.Analysis.SilenceNoiseDB = defaultSilenceNoiseDB
	}
	if c.Analysis.MinClipSeconds <= 0 {
		c.Analysis.MinClipSeconds = defaultMinClipSeconds
	}
	if c.Analysis.MaxClipSeconds <= 0 {
		c.Analysis.MaxClipSeconds = defaultMaxClipSeconds
	}
}

func (c *Config) normalizeRender() {
	if c.Render.DraftMaxSeconds <= 0 {
		c.Render.DraftMaxSeconds = defaultDraftMaxSeconds
	}
	c.Render.DraftPreset = strings.ToLower(defaultString(c.Render.DraftPreset, defaultDraftPreset))
	c.Render.FinalPreset = strings.ToLower(defaultString(c.Render.FinalPreset, defaultFinalPreset))
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxConcurrentJobs <= 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Workflow.EventBufferPerJob <= 0 {
		c.Workflow.EventBufferPerJob = defaultEventBuffer
	}
	if c.Workflow.IntakeWaitTimeout <= 0 {
		c.Workflow.IntakeWaitTimeout = defaultIntakeWaitTimeout
	}
	if c.Workflow.ShutdownGraceSeconds <= 0 {
		c.Workflow.ShutdownGraceSeconds = defaultShutdownGrace
	}
}

func (c *Config) normalizeEntitlement() {
	c.Entitlement.DefaultPlan = strings.ToLower(defaultString(c.Entitlement.DefaultPlan, defaultPlan))
	if c.Entitlement.PeriodDays <= 0 {
		c.Entitlement.PeriodDays = defaultPeriodDays
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.SigningKey = strings.TrimSpace(c.Storage.SigningKey)
	if c.Storage.SigningKey == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_SIGNING_KEY"); ok {
			c.Storage.SigningKey = strings.TrimSpace(value)
		}
	}
	if c.Storage.URLTTLSeconds <= 0 {
		c.Storage.URLTTLSeconds = defaultURLTTLSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultString(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultString(c.Logging.Level, defaultLogLevel))
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

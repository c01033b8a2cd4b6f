package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"clipforge/internal/language"
)

var x264Presets = map[string]struct{}{
	"ultrafast": {}, "superfast": {}, "veryfast": {}, "faster": {}, "fast": {},
	"medium": {}, "slow": {}, "slower": {}, "veryslow": {},
}

// PlanNames lists the entitlement plans a config may reference.
var PlanNames = []string{"free", "starter", "creator", "studio"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateEntitlement(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.PublicBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.public_base_url must be an absolute URL, got %q", c.API.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateTools() error {
	if _, err := language.Whisper(c.Tools.Language); err != nil {
		return fmt.Errorf("tools.language: %w", err)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.SpeechWeight < 0 || a.SilenceWeight < 0 || a.EnergyWeight < 0 {
		return errors.New("analysis weights must be non-negative")
	}
	if a.SpeechWeight+a.EnergyWeight == 0 {
		return errors.New("analysis.speech_weight or analysis.energy_weight must be positive")
	}
	if a.MinMeaningfulEditSeconds < 0 {
		return errors.New("analysis.min_meaningful_edit_seconds must be non-negative")
	}
	if a.SilenceNoiseDB >= 0 {
		return errors.New("analysis.silence_noise_db must be negative")
	}
	if a.MinClipSeconds > a.MaxClipSeconds {
		return fmt.Errorf("analysis.min_clip_seconds (%d) exceeds analysis.max_clip_seconds (%d)", a.MinClipSeconds, a.MaxClipSeconds)
	}
	return nil
}

func (c *Config) validateRender() error {
	r := c.Render
	dims := []struct {
		name  string
		value int
	}{
		{"render.draft_width", r.DraftWidth},
		{"render.draft_height", r.DraftHeight},
		{"render.final_width", r.FinalWidth},
		{"render.final_height", r.FinalHeight},
	}
	for _, dim := range dims {
		if dim.value <= 0 || dim.value%2 != 0 {
			return fmt.Errorf("%s must be a positive even number, got %d", dim.name, dim.value)
		}
	}
	for name, preset := range map[string]string{"render.draft_preset": r.DraftPreset, "render.final_preset": r.FinalPreset} {
		if _, ok := x264Presets[preset]; !ok {
			return fmt.Errorf("%s: unsupported x264 preset %q", name, preset)
		}
	}
	if r.DraftCRF < 0 || r.DraftCRF > 51 || r.FinalCRF < 0 || r.FinalCRF > 51 {
		return errors.New("render crf values must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	timeouts := map[string]int{
		"workflow.analyze_timeout": c.Workflow.AnalyzeTimeout,
		"workflow.enhance_timeout": c.Workflow.EnhanceTimeout,
		"workflow.draft_timeout":   c.Workflow.DraftTimeout,
		"workflow.final_timeout":   c.Workflow.FinalTimeout,
	}
	for name, value := range timeouts {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateEntitlement() error {
	for _, name := range PlanNames {
		if c.Entitlement.DefaultPlan == name {
			return nil
		}
	}
	return fmt.Errorf("entitlement.default_plan must be one of %s, got %q", strings.Join(PlanNames, ", "), c.Entitlement.DefaultPlan)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

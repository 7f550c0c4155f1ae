package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/translator"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// MinFontStep bounds the auto-fit loop to a few hundred passes per segment.
const MinFontStep = 0.1

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Layout:   defaultLayoutConfig(),
		Style: StyleConfig{
			FillColor:   "#ffffff",
			BorderColor: "#000000",
			TextColor:   "#000000",
			BorderWidth: 1.5,
			Opacity:     0.95,
		},
		Gemini: defaultGeminiConfig(),
		Server: ServerConfig{
			Host:            "localhost",
			Port:            5000,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      300,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 10,
				RequestsPerHour:   100,
				MaxRequestsPerDay: 500,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers:         2,
			ContinueOnError: false,
		},
		Output: OutputConfig{
			Filename: "Manga_Translated.pdf",
			Suffix:   "_translated",
			Optimize: false,
		},
	}
}

// defaultLayoutConfig mirrors layout.DefaultConfig.
func defaultLayoutConfig() LayoutConfig {
	cfg := layout.DefaultConfig()
	return LayoutConfig{
		StartFontSize:   cfg.StartFontSize,
		MinFontSize:     cfg.MinFontSize,
		FontStep:        cfg.FontStep,
		LineHeight:      cfg.LineHeight,
		Tolerance:       cfg.Tolerance,
		PatchPadding:    cfg.PatchPadding,
		TextInset:       cfg.TextInset,
		MinPatchWidth:   cfg.MinPatchWidth,
		PatchDrop:       cfg.PatchDrop,
		CollisionMargin: cfg.CollisionMargin,
		MaxAttempts:     cfg.MaxAttempts,
		VerticalAlign:   string(cfg.VerticalAlign),
	}
}

// defaultGeminiConfig mirrors translator.DefaultGeminiConfig.
func defaultGeminiConfig() GeminiConfig {
	cfg := translator.DefaultGeminiConfig()
	return GeminiConfig{
		Model:          cfg.Model,
		TargetLanguage: cfg.TargetLanguage,
		ToneRules:      append([]string(nil), cfg.ToneRules...),
		TimeoutSec:     int(cfg.Timeout / time.Second),
		MaxRetries:     cfg.MaxRetries,
		RetryDelayMs:   int(cfg.RetryDelay / time.Millisecond),
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if err := c.Layout.validate(); err != nil {
		return err
	}

	if err := validateThreshold(c.Style.Opacity, "style.opacity"); err != nil {
		return err
	}
	if c.Style.BorderWidth < 0 {
		return fmt.Errorf("invalid style.border_width: %.2f (must not be negative)", c.Style.BorderWidth)
	}
	for name, hex := range map[string]string{
		"style.fill_color":   c.Style.FillColor,
		"style.border_color": c.Style.BorderColor,
		"style.text_color":   c.Style.TextColor,
	} {
		if _, err := ParseColor(hex); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.Gemini.Model == "" {
		return fmt.Errorf("invalid gemini.model: must not be empty")
	}
	if c.Gemini.TimeoutSec <= 0 {
		return fmt.Errorf("invalid gemini.timeout_sec: %d (must be positive)", c.Gemini.TimeoutSec)
	}
	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("invalid gemini.max_retries: %d (must not be negative)", c.Gemini.MaxRetries)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if strings.TrimSpace(c.Output.Filename) == "" {
		return fmt.Errorf("invalid output.filename: must not be empty")
	}

	return nil
}

func (l LayoutConfig) validate() error {
	if l.StartFontSize <= 0 {
		return fmt.Errorf("invalid layout.start_font_size: %.2f (must be positive)", l.StartFontSize)
	}
	if l.MinFontSize <= 0 {
		return fmt.Errorf("invalid layout.min_font_size: %.2f (must be positive)", l.MinFontSize)
	}
	if l.MinFontSize > l.StartFontSize {
		return fmt.Errorf("invalid layout.min_font_size: %.2f (must not exceed start_font_size %.2f)",
			l.MinFontSize, l.StartFontSize)
	}
	if l.FontStep < MinFontStep {
		return fmt.Errorf("invalid layout.font_step: %g (must be at least %g)", l.FontStep, MinFontStep)
	}
	if l.LineHeight < 1 {
		return fmt.Errorf("invalid layout.line_height: %.2f (must be at least 1)", l.LineHeight)
	}
	for name, v := range map[string]float64{
		"layout.tolerance":        l.Tolerance,
		"layout.patch_padding":    l.PatchPadding,
		"layout.text_inset":       l.TextInset,
		"layout.min_patch_width":  l.MinPatchWidth,
		"layout.patch_drop":       l.PatchDrop,
		"layout.collision_margin": l.CollisionMargin,
	} {
		if v < 0 {
			return fmt.Errorf("invalid %s: %.2f (must not be negative)", name, v)
		}
	}
	if l.MaxAttempts <= 0 {
		return fmt.Errorf("invalid layout.max_attempts: %d (must be positive)", l.MaxAttempts)
	}
	validAligns := []string{string(layout.AlignCenter), string(layout.AlignTop)}
	if !contains(validAligns, l.VerticalAlign) {
		return fmt.Errorf("invalid layout.vertical_align: %s (must be one of: %s)",
			l.VerticalAlign, strings.Join(validAligns, ", "))
	}
	return nil
}

// ToLayoutConfig converts the config to the typesetter configuration.
func (c *Config) ToLayoutConfig() (layout.Config, error) {
	fill, err := ParseColor(c.Style.FillColor)
	if err != nil {
		return layout.Config{}, fmt.Errorf("style.fill_color: %w", err)
	}
	border, err := ParseColor(c.Style.BorderColor)
	if err != nil {
		return layout.Config{}, fmt.Errorf("style.border_color: %w", err)
	}
	text, err := ParseColor(c.Style.TextColor)
	if err != nil {
		return layout.Config{}, fmt.Errorf("style.text_color: %w", err)
	}

	l := c.Layout
	return layout.Config{
		StartFontSize:   l.StartFontSize,
		MinFontSize:     l.MinFontSize,
		FontStep:        l.FontStep,
		LineHeight:      l.LineHeight,
		Tolerance:       l.Tolerance,
		PatchPadding:    l.PatchPadding,
		TextInset:       l.TextInset,
		MinPatchWidth:   l.MinPatchWidth,
		PatchDrop:       l.PatchDrop,
		CollisionMargin: l.CollisionMargin,
		MaxAttempts:     l.MaxAttempts,
		VerticalAlign:   layout.Align(l.VerticalAlign),
		Patch: layout.PatchStyle{
			Fill:        fill,
			Border:      border,
			BorderWidth: c.Style.BorderWidth,
			Opacity:     c.Style.Opacity,
		},
		Text: layout.TextStyle{Color: text},
	}, nil
}

// ToGeminiConfig converts the config to the translator configuration.
func (c *Config) ToGeminiConfig() translator.GeminiConfig {
	return translator.GeminiConfig{
		APIKey:         c.Gemini.APIKey,
		Model:          c.Gemini.Model,
		TargetLanguage: c.Gemini.TargetLanguage,
		ToneRules:      c.Gemini.ToneRules,
		Timeout:        time.Duration(c.Gemini.TimeoutSec) * time.Second,
		MaxRetries:     c.Gemini.MaxRetries,
		RetryDelay:     time.Duration(c.Gemini.RetryDelayMs) * time.Millisecond,
	}
}

// ParseColor parses "#rrggbb" (the leading # is optional) into an opaque color.
func ParseColor(hex string) (color.RGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex != "" && hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

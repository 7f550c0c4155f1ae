//nolint:lll
package config

// Config represents the complete configuration for retype.
// It includes settings for all commands (translate, batch, layout, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Font   FontConfig   `mapstructure:"font" yaml:"font" json:"font"`
	Layout LayoutConfig `mapstructure:"layout" yaml:"layout" json:"layout"`
	Style  StyleConfig  `mapstructure:"style" yaml:"style" json:"style"`
	Gemini GeminiConfig `mapstructure:"gemini" yaml:"gemini" json:"gemini"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// FontConfig selects the TrueType font used for translated text.
// An empty path falls back to the bundled Go Regular face.
type FontConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// LayoutConfig contains typesetting constants in PDF points.
type LayoutConfig struct {
	StartFontSize   float64 `mapstructure:"start_font_size" yaml:"start_font_size" json:"start_font_size"`
	MinFontSize     float64 `mapstructure:"min_font_size" yaml:"min_font_size" json:"min_font_size"`
	FontStep        float64 `mapstructure:"font_step" yaml:"font_step" json:"font_step"`
	LineHeight      float64 `mapstructure:"line_height" yaml:"line_height" json:"line_height"`
	Tolerance       float64 `mapstructure:"tolerance" yaml:"tolerance" json:"tolerance"`
	PatchPadding    float64 `mapstructure:"patch_padding" yaml:"patch_padding" json:"patch_padding"`
	TextInset       float64 `mapstructure:"text_inset" yaml:"text_inset" json:"text_inset"`
	MinPatchWidth   float64 `mapstructure:"min_patch_width" yaml:"min_patch_width" json:"min_patch_width"`
	PatchDrop       float64 `mapstructure:"patch_drop" yaml:"patch_drop" json:"patch_drop"`
	CollisionMargin float64 `mapstructure:"collision_margin" yaml:"collision_margin" json:"collision_margin"`
	MaxAttempts     int     `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	VerticalAlign   string  `mapstructure:"vertical_align" yaml:"vertical_align" json:"vertical_align"`
}

// StyleConfig contains patch and text colors as hex strings.
type StyleConfig struct {
	FillColor   string  `mapstructure:"fill_color" yaml:"fill_color" json:"fill_color"`
	BorderColor string  `mapstructure:"border_color" yaml:"border_color" json:"border_color"`
	TextColor   string  `mapstructure:"text_color" yaml:"text_color" json:"text_color"`
	BorderWidth float64 `mapstructure:"border_width" yaml:"border_width" json:"border_width"`
	Opacity     float64 `mapstructure:"opacity" yaml:"opacity" json:"opacity"`
}

// GeminiConfig contains translation model settings.
type GeminiConfig struct {
	APIKey         string   `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Model          string   `mapstructure:"model" yaml:"model" json:"model"`
	TargetLanguage string   `mapstructure:"target_language" yaml:"target_language" json:"target_language"`
	ToneRules      []string `mapstructure:"tone_rules" yaml:"tone_rules" json:"tone_rules"`
	TimeoutSec     int      `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxRetries     int      `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryDelayMs   int      `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms" json:"retry_delay_ms"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// OutputConfig contains settings for written PDFs.
type OutputConfig struct {
	// Filename is the download name used by the HTTP surface.
	Filename string `mapstructure:"filename" yaml:"filename" json:"filename"`
	// Suffix is appended to input names by translate and batch.
	Suffix   string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
	Optimize bool   `mapstructure:"optimize" yaml:"optimize" json:"optimize"`
}

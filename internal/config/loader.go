package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "retype"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "RETYPE"

	// APIKeyEnv is read in addition to RETYPE_GEMINI_API_KEY.
	APIKeyEnv = "GEMINI_API_KEY"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v       *viper.Viper
	envFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper(), envFile: ".env"}
}

// NewLoaderWithViper creates a loader around a private viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envFile: ".env"}
}

// SetEnvFile changes the dotenv file read before the environment. An empty
// name disables dotenv loading.
func (l *Loader) SetEnvFile(name string) {
	l.envFile = name
}

// Load loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration and any error encountered.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation loads configuration without validating it.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.setupEnvironmentVariables(); err != nil {
		return nil, err
	}
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file is fine when searching; an explicit file must be readable.
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// loadEnvFile reads KEY=value pairs into the process environment without
// overriding variables that are already set.
func (l *Loader) loadEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	if err := godotenv.Load(l.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading env file %s: %w", l.envFile, err)
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() error {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// The bare key name is what every Gemini tool documents.
	if err := l.v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", APIKeyEnv); err != nil {
		return fmt.Errorf("bind %s: %w", APIKeyEnv, err)
	}
	return nil
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	setDefaults(l.v)
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	// Global settings
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("font.path", defaults.Font.Path)

	// Layout defaults
	v.SetDefault("layout.start_font_size", defaults.Layout.StartFontSize)
	v.SetDefault("layout.min_font_size", defaults.Layout.MinFontSize)
	v.SetDefault("layout.font_step", defaults.Layout.FontStep)
	v.SetDefault("layout.line_height", defaults.Layout.LineHeight)
	v.SetDefault("layout.tolerance", defaults.Layout.Tolerance)
	v.SetDefault("layout.patch_padding", defaults.Layout.PatchPadding)
	v.SetDefault("layout.text_inset", defaults.Layout.TextInset)
	v.SetDefault("layout.min_patch_width", defaults.Layout.MinPatchWidth)
	v.SetDefault("layout.patch_drop", defaults.Layout.PatchDrop)
	v.SetDefault("layout.collision_margin", defaults.Layout.CollisionMargin)
	v.SetDefault("layout.max_attempts", defaults.Layout.MaxAttempts)
	v.SetDefault("layout.vertical_align", defaults.Layout.VerticalAlign)

	// Style defaults
	v.SetDefault("style.fill_color", defaults.Style.FillColor)
	v.SetDefault("style.border_color", defaults.Style.BorderColor)
	v.SetDefault("style.text_color", defaults.Style.TextColor)
	v.SetDefault("style.border_width", defaults.Style.BorderWidth)
	v.SetDefault("style.opacity", defaults.Style.Opacity)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", defaults.Gemini.Model)
	v.SetDefault("gemini.target_language", defaults.Gemini.TargetLanguage)
	v.SetDefault("gemini.tone_rules", defaults.Gemini.ToneRules)
	v.SetDefault("gemini.timeout_sec", defaults.Gemini.TimeoutSec)
	v.SetDefault("gemini.max_retries", defaults.Gemini.MaxRetries)
	v.SetDefault("gemini.retry_delay_ms", defaults.Gemini.RetryDelayMs)

	// Server defaults
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit.enabled", defaults.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_minute", defaults.Server.RateLimit.RequestsPerMinute)
	v.SetDefault("server.rate_limit.requests_per_hour", defaults.Server.RateLimit.RequestsPerHour)
	v.SetDefault("server.rate_limit.max_requests_per_day", defaults.Server.RateLimit.MaxRequestsPerDay)
	v.SetDefault("server.rate_limit.max_data_per_day_mb", defaults.Server.RateLimit.MaxDataPerDayMB)

	// Batch defaults
	v.SetDefault("batch.workers", defaults.Batch.Workers)
	v.SetDefault("batch.output_dir", defaults.Batch.OutputDir)
	v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)

	// Output defaults
	v.SetDefault("output.filename", defaults.Output.Filename)
	v.SetDefault("output.suffix", defaults.Output.Suffix)
	v.SetDefault("output.optimize", defaults.Output.Optimize)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	// If no filename provided, use default
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	v := viper.New()
	setDefaults(v)
	return v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	paths = append(paths, filepath.Join("/etc", ConfigFileName))

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", l.GetConfigFileUsed())
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}

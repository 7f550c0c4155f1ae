package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader returns a loader with a private viper instance, working in an
// empty temporary directory.
func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(APIKeyEnv, "")
	return NewLoaderWithViper(viper.New())
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.NotNil(t, loader.GetViper())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := newTestLoader(t).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_ConfigFile(t *testing.T) {
	loader := newTestLoader(t)
	yaml := `
log_level: debug
layout:
  start_font_size: 18
  vertical_align: top
style:
  fill_color: "#fffbe6"
gemini:
  target_language: German
  tone_rules: ["Keep it short."]
server:
  port: 9090
`
	require.NoError(t, os.WriteFile("retype.yaml", []byte(yaml), 0o600))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 18.0, cfg.Layout.StartFontSize, 1e-9)
	assert.Equal(t, "top", cfg.Layout.VerticalAlign)
	assert.Equal(t, "#fffbe6", cfg.Style.FillColor)
	assert.Equal(t, "German", cfg.Gemini.TargetLanguage)
	assert.Equal(t, []string{"Keep it short."}, cfg.Gemini.ToneRules)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 6.0, cfg.Layout.MinFontSize, 1e-9)
	assert.Contains(t, loader.GetConfigFileUsed(), "retype.yaml")
}

func TestLoad_Environment(t *testing.T) {
	loader := newTestLoader(t)
	t.Setenv("RETYPE_LAYOUT_MIN_FONT_SIZE", "8")
	t.Setenv("RETYPE_SERVER_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.InDelta(t, 8.0, cfg.Layout.MinFontSize, 1e-9)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Gemini.APIKey)
}

func TestLoad_EnvFile(t *testing.T) {
	loader := newTestLoader(t)
	const key = "RETYPE_OUTPUT_SUFFIX"
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	require.NoError(t, os.WriteFile(".env", []byte(key+"=_fa\n"), 0o600))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "_fa", cfg.Output.Suffix)
}

func TestLoad_InvalidConfig(t *testing.T) {
	loader := newTestLoader(t)
	require.NoError(t, os.WriteFile("retype.yaml", []byte("log_level: loud\n"), 0o600))

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestLoadWithFile(t *testing.T) {
	loader := newTestLoader(t)

	_, err := loader.LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  workers: 6\n"), 0o600))
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Batch.Workers)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retype.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, "/etc/retype")
	assert.Contains(t, paths, filepath.Join("/xdg", "retype"))
}

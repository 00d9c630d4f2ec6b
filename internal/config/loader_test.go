package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/tmp/test.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/tmp/test.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("returns default config when file doesn't exist", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nonexistent.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("loads config from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "toolplan.json")
		configJSON := `{
			"dispatch": {
				"call_timeout": "5s",
				"max_concurrency": 2,
				"max_output_bytes": 128
			},
			"parser": {"embedded_plan": true},
			"capabilities": {"disabled": ["time.add_days"]},
			"logging": {"level": "debug"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0o600))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.Dispatch.CallTimeout)
		assert.Equal(t, 2, cfg.Dispatch.MaxConcurrency)
		assert.Equal(t, 128, cfg.Dispatch.MaxOutputBytes)
		assert.True(t, cfg.Parser.EmbeddedPlan)
		assert.Equal(t, []string{"time.add_days"}, cfg.Capabilities.Disabled)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// untouched sections keep their defaults
		assert.Equal(t, "toolplan", cfg.Tracing.ServiceName)
		assert.True(t, cfg.Logging.Redaction)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "toolplan.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"dispatch":{"max_concurrency":2}}`), 0o600))
		t.Setenv("TOOLPLAN_DISPATCH_MAX_CONCURRENCY", "9")
		t.Setenv("TOOLPLAN_LOGGING_LEVEL", "warn")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Dispatch.MaxConcurrency)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("uses default path", func(t *testing.T) {
		path := NewLoader("").GetConfigPath()
		assert.Contains(t, path, filepath.Join(".toolplan", "toolplan.json"))
	})

	t.Run("handles invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "toolplan.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0o600))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "toolplan.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"dispatch":{"max_concurrency":-3}}`), 0o600))

		_, err := Load(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}

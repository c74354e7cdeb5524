package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MEALTRACK_CONFIG", "MEALTRACK_DB", "MEALTRACK_API_BASE_URL", "MEALTRACK_FORWARDER_URL",
		"MEALTRACK_DIRECT", "MEALTRACK_LISTEN_ADDR", "MEALTRACK_LOG_LEVEL", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8787", cfg.ForwarderURL)
	assert.Equal(t, ":8787", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Direct)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mealtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/from-file.db
api_base_url: https://api.example.com
direct: true
log_level: debug
`), 0o600))

	t.Setenv("MEALTRACK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file.db", cfg.DBPath)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.True(t, cfg.Direct)
	assert.Equal(t, "warn", cfg.LogLevel, "environment overrides the file")
	assert.NoError(t, cfg.Validate())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvMissingFileIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEALTRACK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load("")
	assert.NoError(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("direct: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetEnvBoolInvalid(t *testing.T) {
	t.Setenv("MEALTRACK_DIRECT", "maybe")
	assert.True(t, getEnvBool("MEALTRACK_DIRECT", true))
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBPath: "x.db", Direct: true}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_base_url")

	cfg = &Config{DBPath: "x.db", ForwarderURL: "http://localhost:8787"}
	assert.NoError(t, cfg.Validate())
}

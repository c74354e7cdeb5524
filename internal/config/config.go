// Package config loads mealtrack settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all settings. It is read once at startup and treated as immutable.
type Config struct {
	// DBPath is the SQLite file backing session and history storage.
	DBPath string `yaml:"db_path"`

	// APIBaseURL is the real backend. Required by the forwarder and by direct mode.
	APIBaseURL string `yaml:"api_base_url"`

	// ForwarderURL is the origin of the boundary forwarder used when not in direct mode.
	ForwarderURL string `yaml:"forwarder_url"`

	// Direct sends requests straight to APIBaseURL instead of through the forwarder.
	Direct bool `yaml:"direct"`

	// ListenAddr is the forwarder's listen address.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel string `yaml:"log_level"`

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:       filepath.Join(home, ".mealtrack", "mealtrack.db"),
		ForwarderURL: "http://localhost:8787",
		ListenAddr:   ":8787",
		LogLevel:     "info",
	}
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then environment variables. An empty path falls back to $MEALTRACK_CONFIG.
// A missing file named only through the environment is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("MEALTRACK_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.DBPath = getEnvString("MEALTRACK_DB", cfg.DBPath)
	cfg.APIBaseURL = getEnvString("MEALTRACK_API_BASE_URL", cfg.APIBaseURL)
	cfg.ForwarderURL = getEnvString("MEALTRACK_FORWARDER_URL", cfg.ForwarderURL)
	cfg.Direct = getEnvBool("MEALTRACK_DIRECT", cfg.Direct)
	cfg.ListenAddr = getEnvString("MEALTRACK_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getEnvString("MEALTRACK_LOG_LEVEL", cfg.LogLevel)
	cfg.OTLPEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings a client run depends on.
func (c *Config) Validate() error {
	var missing []string
	if c.DBPath == "" {
		missing = append(missing, "db_path")
	}
	if c.Direct && c.APIBaseURL == "" {
		missing = append(missing, "api_base_url (required in direct mode)")
	}
	if !c.Direct && c.ForwarderURL == "" {
		missing = append(missing, "forwarder_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings are not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

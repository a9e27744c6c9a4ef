package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
)

// Config is the top-level configuration file structure
type Config struct {
	LogLevel  string          `yaml:"log_level,omitempty"`
	API       APIOptions      `yaml:"api"`
	Detection DetectionConfig `yaml:"detection"`
	History   HistoryConfig   `yaml:"history"`
}

// APIOptions configures the localhost REST façade
type APIOptions struct {
	Port int `yaml:"port"`
}

// DetectionConfig configures the language server detection retry loop
type DetectionConfig struct {
	Attempts    int  `yaml:"attempts"`
	BaseDelayMS int  `yaml:"base_delay_ms"`
	Verbose     bool `yaml:"verbose,omitempty"`
}

// HistoryConfig configures the quota snapshot history store
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		API: APIOptions{
			Port: 7890,
		},
		Detection: DetectionConfig{
			Attempts:    3,
			BaseDelayMS: 1500,
		},
		History: HistoryConfig{
			Path: filepath.Join(defaultDir(), "history.db"),
		},
	}
}

// DefaultPath returns where the config file lives when no explicit path
// is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "bridge.yaml")
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".vibecode")
}

// Load reads the configuration from path (or the default path when path
// is empty). A missing file is seeded with the defaults so the first
// run leaves an editable config behind.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.NewIOError("failed to read config file", err).WithContext("path", path)
		}
		cfg := Default()
		if writeErr := writeDefault(path, cfg); writeErr != nil {
			return Config{}, writeErr
		}
		return cfg, nil
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.NewParseError("failed to parse config file", err).WithContext("path", path)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOError("failed to create config directory", err).WithContext("path", path)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError("failed to marshal default config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError("failed to write default config", err).WithContext("path", path)
	}
	return nil
}

// Validate checks configuration invariants.
func Validate(cfg Config) error {
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return errors.NewValidationError("api port must be between 1 and 65535", nil).
			WithContext("port", cfg.API.Port)
	}
	if cfg.Detection.Attempts < 1 {
		return errors.NewValidationError("detection attempts must be at least 1", nil)
	}
	if cfg.Detection.BaseDelayMS < 0 {
		return errors.NewValidationError("detection base delay must not be negative", nil)
	}
	if cfg.History.Path == "" {
		return errors.NewValidationError("history path must not be empty", nil)
	}
	return nil
}

// DetectOptions converts the detection section into the detector's
// option struct.
func (c DetectionConfig) DetectOptions() languageserver.DetectOptions {
	return languageserver.DetectOptions{
		Attempts:  c.Attempts,
		BaseDelay: time.Duration(c.BaseDelayMS) * time.Millisecond,
		Verbose:   c.Verbose,
	}
}

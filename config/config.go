// Package config loads and validates forge.yml, the configuration for the
// live status aggregation core: stuck-detection thresholds, detector tick
// interval, reconnection backoff bounds, and display projection windows.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lanathlor/Forge-sub000/errors"
	"github.com/lanathlor/Forge-sub000/logging"
	"github.com/lanathlor/Forge-sub000/pkg/paths"
)

// Config is the root configuration loaded from forge.yml.
type Config struct {
	Version string `yaml:"version"`

	Transport TransportConfig `yaml:"transport"`
	Detector  DetectorConfig  `yaml:"detector"`
	Display   DisplayConfig   `yaml:"display"`
	Logging   logging.Config  `yaml:"logging"`
}

// TransportConfig controls the push-channel connection.
type TransportConfig struct {
	// Endpoint is the push channel URL. A path beginning with / or unix://
	// is treated as a unix socket.
	Endpoint string `yaml:"endpoint"`

	// RetryMinBackoff and RetryMaxBackoff bound the reconnect backoff.
	RetryMinBackoff Duration `yaml:"retry_min_backoff"`
	RetryMaxBackoff Duration `yaml:"retry_max_backoff"`
}

// DetectorConfig controls the stuck detector's tick and severity ladder.
// Each threshold is elapsed time since last activity while in a working
// status; they must be strictly increasing.
type DetectorConfig struct {
	TickInterval Duration `yaml:"tick_interval"`

	LowThreshold      Duration `yaml:"low_threshold"`
	MediumThreshold   Duration `yaml:"medium_threshold"`
	HighThreshold     Duration `yaml:"high_threshold"`
	CriticalThreshold Duration `yaml:"critical_threshold"`
}

// DisplayConfig controls presentation projections.
type DisplayConfig struct {
	// ActiveWindow is the recency window for the "active work" projection:
	// idle repositories with no activity inside the window are hidden.
	ActiveWindow Duration `yaml:"active_window"`
}

// Default returns the built-in configuration. The threshold values are
// observed UI defaults and deliberately live here rather than as constants
// in the detector.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Transport: TransportConfig{
			RetryMinBackoff: Duration(250 * time.Millisecond),
			RetryMaxBackoff: Duration(30 * time.Second),
		},
		Detector: DetectorConfig{
			TickInterval:      Duration(5 * time.Second),
			LowThreshold:      Duration(2 * time.Minute),
			MediumThreshold:   Duration(5 * time.Minute),
			HighThreshold:     Duration(10 * time.Minute),
			CriticalThreshold: Duration(20 * time.Minute),
		},
		Display: DisplayConfig{
			ActiveWindow: Duration(time.Hour),
		},
	}
}

// Load reads the config file at path, layering it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault discovers forge.yml by walking up from the working directory.
// Returns the built-in defaults when no file exists.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path := FindConfigFile(cwd)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// FindConfigFile searches from startDir up to the filesystem root for a
// forge config file, then falls back to the global config directory.
// Returns "" when none exists.
func FindConfigFile(startDir string) string {
	configNames := []string{
		"forge.yml",
		"forge.yaml",
		".forge.yml",
		".forge.yaml",
	}

	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if globalDir := paths.ConfigDir(); globalDir != "" {
		for _, name := range configNames {
			path := filepath.Join(globalDir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Validate checks interval sanity and the severity ladder ordering.
func (c *Config) Validate() error {
	if c.Detector.TickInterval <= 0 {
		return errors.ConfigInvalid("detector tick_interval must be positive")
	}
	d := c.Detector
	if d.LowThreshold <= 0 {
		return errors.ConfigInvalid("detector low_threshold must be positive")
	}
	if d.MediumThreshold <= d.LowThreshold {
		return errors.ConfigInvalid("detector medium_threshold must exceed low_threshold")
	}
	if d.HighThreshold <= d.MediumThreshold {
		return errors.ConfigInvalid("detector high_threshold must exceed medium_threshold")
	}
	if d.CriticalThreshold <= d.HighThreshold {
		return errors.ConfigInvalid("detector critical_threshold must exceed high_threshold")
	}
	if c.Transport.RetryMinBackoff <= 0 {
		return errors.ConfigInvalid("transport retry_min_backoff must be positive")
	}
	if c.Transport.RetryMaxBackoff < c.Transport.RetryMinBackoff {
		return errors.ConfigInvalid("transport retry_max_backoff must be at least retry_min_backoff")
	}
	if c.Display.ActiveWindow <= 0 {
		return errors.ConfigInvalid("display active_window must be positive")
	}
	return nil
}

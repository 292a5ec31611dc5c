package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forgeerr "github.com/lanathlor/Forge-sub000/errors"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "forge.yml")
	content := `
version: "1.0"
detector:
  tick_interval: 1s
  low_threshold: 30s
  medium_threshold: 60s
  high_threshold: 120s
  critical_threshold: 240s
display:
  active_window: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Detector.TickInterval.Std())
	assert.Equal(t, 30*time.Second, cfg.Detector.LowThreshold.Std())
	assert.Equal(t, 240*time.Second, cfg.Detector.CriticalThreshold.Std())
	assert.Equal(t, 30*time.Minute, cfg.Display.ActiveWindow.Std())

	// Sections absent from the file keep their defaults.
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.RetryMinBackoff.Std())
	assert.Equal(t, 30*time.Second, cfg.Transport.RetryMaxBackoff.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "forge.yml"))
	require.Error(t, err)
	assert.True(t, forgeerr.Is(err, forgeerr.ErrCodeConfigNotFound))
}

func TestValidateLadderOrdering(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default ladder", func(c *Config) {}, true},
		{"medium below low", func(c *Config) {
			c.Detector.MediumThreshold = c.Detector.LowThreshold - 1
		}, false},
		{"high equals medium", func(c *Config) {
			c.Detector.HighThreshold = c.Detector.MediumThreshold
		}, false},
		{"critical below high", func(c *Config) {
			c.Detector.CriticalThreshold = c.Detector.HighThreshold - 1
		}, false},
		{"zero tick", func(c *Config) {
			c.Detector.TickInterval = 0
		}, false},
		{"max backoff below min", func(c *Config) {
			c.Transport.RetryMaxBackoff = c.Transport.RetryMinBackoff - 1
		}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFindConfigFileWalksUp(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	path := filepath.Join(tmpDir, "forge.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0644))

	found := FindConfigFile(nested)
	assert.Equal(t, path, found)
}

func TestFindConfigFileGlobalFallback(t *testing.T) {
	forgeHome := t.TempDir()
	globalDir := filepath.Join(forgeHome, "config", "forge")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	path := filepath.Join(globalDir, "forge.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0644))
	t.Setenv("FORGE_HOME", forgeHome)

	// No project config anywhere above the start directory.
	assert.Equal(t, path, FindConfigFile(t.TempDir()))
}

func TestDurationUnmarshalForms(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "forge.yml")
	// A bare number is read as seconds.
	content := `
detector:
  tick_interval: 2
  low_threshold: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Detector.TickInterval.Std())
	assert.Equal(t, 45*time.Second, cfg.Detector.LowThreshold.Std())
}

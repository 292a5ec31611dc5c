package paths

import (
	"path/filepath"
	"testing"
)

func TestForgeHomeWinsOverXDG(t *testing.T) {
	t.Setenv("FORGE_HOME", "/opt/forge")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	if got := ConfigDir(); got != filepath.Join("/opt/forge", "config", "forge") {
		t.Errorf("ConfigDir = %q", got)
	}
	if got := StateDir(); got != filepath.Join("/opt/forge", "state", "forge") {
		t.Errorf("StateDir = %q", got)
	}
}

func TestXDGEnvResolution(t *testing.T) {
	t.Setenv("FORGE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	if got := ConfigDir(); got != filepath.Join("/xdg/config", "forge") {
		t.Errorf("ConfigDir = %q", got)
	}
	if got := StateDir(); got != filepath.Join("/xdg/state", "forge") {
		t.Errorf("StateDir = %q", got)
	}
	if got := LogsDir(); got != filepath.Join("/xdg/state", "forge", "logs") {
		t.Errorf("LogsDir = %q", got)
	}
}

func TestHomeDirDefaults(t *testing.T) {
	t.Setenv("FORGE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/dev")

	if got := ConfigDir(); got != filepath.Join("/home/dev", ".config", "forge") {
		t.Errorf("ConfigDir = %q", got)
	}
	if got := LogsDir(); got != filepath.Join("/home/dev", ".local", "state", "forge", "logs") {
		t.Errorf("LogsDir = %q", got)
	}
}

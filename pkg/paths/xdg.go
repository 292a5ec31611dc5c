// Package paths provides XDG-compliant path resolution for Forge.
//
// Resolution order:
// 1. FORGE_HOME (portable root) → $FORGE_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/forge
// 3. Platform defaults → ~/.config/forge, ~/.local/state/forge
package paths

import (
	"os"
	"path/filepath"
)

func getConfigHome() string {
	if forgeHome := os.Getenv("FORGE_HOME"); forgeHome != "" {
		return filepath.Join(forgeHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if forgeHome := os.Getenv("FORGE_HOME"); forgeHome != "" {
		return filepath.Join(forgeHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the global Forge config directory. A forge.yml here
// applies when no project-level config is found.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "forge")
}

// StateDir returns the directory for long-lived state such as log files.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "forge")
}

// LogsDir returns the directory for global log files.
func LogsDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

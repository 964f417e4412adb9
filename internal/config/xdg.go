// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "tutor", "config.toml")
}

// DefaultChordPath returns the default chord dictionary path.
func DefaultChordPath() string {
	return filepath.Join(XDGConfigHome(), "tutor", "guitar_chords.json")
}

// DefaultMemoryPath returns the default persistent memory path.
func DefaultMemoryPath() string {
	return filepath.Join(XDGDataHome(), "tutor", "memory.json")
}

// DefaultSessionDir returns the default directory for saved sessions.
func DefaultSessionDir() string {
	return filepath.Join(XDGDataHome(), "tutor", "sessions")
}

// DefaultDBPath returns the default path for the attempt-log database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "tutor", "tutor.db")
}

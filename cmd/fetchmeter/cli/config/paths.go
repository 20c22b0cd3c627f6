// Package config provides configuration management for the fetchmeter CLI.
package config

import (
	"os"
	"path/filepath"
)

// Dir returns the fetchmeter config directory.
// Uses XDG_CONFIG_HOME/fetchmeter, defaulting to ~/.config/fetchmeter.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "fetchmeter"), nil
}

// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// DefaultConfigDir returns the directory holding the config file and
// token cache, ~/.config/fairbill.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fairbill"
	}
	return filepath.Join(home, ".config", "fairbill")
}

// DefaultDBPath returns the default location of the tariff database.
func DefaultDBPath() string {
	return filepath.Join(DefaultConfigDir(), "fairbill.db")
}

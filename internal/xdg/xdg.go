// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package xdg provides XDG Base Directory paths for Quayside.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "quayside"

func base(env string, fallback ...string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.In("xdg").With("env", env).Wrapf(err, "resolve home directory")
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// ConfigDir returns the configuration directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	return base("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory, home of installed extensions and the
// embedded memento database.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() (string, error) {
	return base("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() (string, error) {
	return base("XDG_STATE_HOME", ".local", "state")
}

// ExtensionsDir returns the default directory scanned for extension packages.
func ExtensionsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "extensions"), nil
}

// StorePath returns the default path of the embedded memento database.
func StorePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "memento.db"), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.In("xdg").With("path", path).Wrapf(err, "create directory")
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		fn       func() (string, error)
		fallback string
	}{
		{name: "config", env: "XDG_CONFIG_HOME", fn: ConfigDir, fallback: ".config"},
		{name: "data", env: "XDG_DATA_HOME", fn: DataDir, fallback: filepath.Join(".local", "share")},
		{name: "state", env: "XDG_STATE_HOME", fn: StateDir, fallback: filepath.Join(".local", "state")},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/env", func(t *testing.T) {
			t.Setenv(tt.env, "/custom")
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, "/custom/quayside", got)
		})
		t.Run(tt.name+"/home", func(t *testing.T) {
			t.Setenv(tt.env, "")
			t.Setenv("HOME", "/home/testuser")
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/home/testuser", tt.fallback, "quayside"), got)
		})
	}
}

func TestExtensionsDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	got, err := ExtensionsDir()
	require.NoError(t, err)
	assert.Equal(t, "/data/quayside/extensions", got)
}

func TestStorePath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	got, err := StorePath()
	require.NoError(t, err)
	assert.Equal(t, "/state/quayside/memento.db", got)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

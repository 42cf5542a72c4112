// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/workspace"
	"github.com/quayside/quayside/pkg/errutil"
)

func edit(l1, c1, l2, c2 int, text string) api.TextEdit {
	return api.TextEdit{
		Range:   api.Range{Start: api.Position{Line: l1, Character: c1}, End: api.Position{Line: l2, Character: c2}},
		NewText: text,
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		edits []api.TextEdit
		want  string
	}{
		{"insert", "hello world", []api.TextEdit{edit(0, 5, 0, 5, ",")}, "hello, world"},
		{"replace across lines", "a\nb\nc", []api.TextEdit{edit(0, 1, 2, 0, "-")}, "a-c"},
		{"several in any order", "one two three", []api.TextEdit{
			edit(0, 8, 0, 13, "3"),
			edit(0, 0, 0, 3, "1"),
		}, "1 two 3"},
		{"runes", "héllo", []api.TextEdit{edit(0, 1, 0, 2, "e")}, "hello"},
		{"clamped", "ab\ncd", []api.TextEdit{edit(0, 99, 9, 0, "!")}, "ab!"},
		{"none", "same", nil, "same"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := workspace.Apply(tt.text, tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_Rejects(t *testing.T) {
	_, err := workspace.Apply("abcdef", []api.TextEdit{edit(0, 0, 0, 3, "x"), edit(0, 2, 0, 4, "y")})
	errutil.AssertErrorCode(t, err, workspace.CodeBadEdit)

	_, err = workspace.Apply("abcdef", []api.TextEdit{edit(0, 4, 0, 1, "x")})
	errutil.AssertErrorCode(t, err, workspace.CodeBadEdit)
}

func TestFileSystem(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "k8s"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "k8s", "web.yaml"), []byte("replicas: 1\n"), 0o640))

	fs, err := workspace.New(root)
	require.NoError(t, err)

	for _, uri := range []string{"k8s/web.yaml", filepath.Join(root, "k8s", "web.yaml"), "file://" + filepath.Join(root, "k8s/web.yaml")} {
		text, err := fs.ReadFile(ctx, uri)
		require.NoError(t, err, uri)
		assert.Equal(t, "replicas: 1\n", text)
	}

	require.NoError(t, fs.ApplyEdits(ctx, "k8s/web.yaml", []api.TextEdit{edit(0, 10, 0, 11, "3")}))
	data, err := os.ReadFile(filepath.Join(root, "k8s", "web.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "replicas: 3\n", string(data))

	info, err := os.Stat(filepath.Join(root, "k8s", "web.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	_, err = fs.ReadFile(ctx, "missing.yaml")
	require.Error(t, err)
}

func TestFileSystem_Confinement(t *testing.T) {
	ctx := context.Background()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s3cret"), 0o600))

	root := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	fs, err := workspace.New(root)
	require.NoError(t, err)

	_, err = fs.ReadFile(ctx, filepath.Join(outside, "secret"))
	errutil.AssertErrorCode(t, err, workspace.CodeOutsideRoot)

	// Relative escapes are clamped to the root and symlinks cannot leave it.
	_, err = fs.ReadFile(ctx, "../"+filepath.Base(outside)+"/secret")
	require.Error(t, err)
	_, err = fs.ReadFile(ctx, "escape/secret")
	require.Error(t, err)
}

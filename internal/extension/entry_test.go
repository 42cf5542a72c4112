// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/when"
	"github.com/quayside/quayside/pkg/errutil"
)

func TestResolveEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.lua"), "return {}", 0o600)
	writeFile(t, filepath.Join(root, "bin", "ext"), "#!/bin/sh\n", 0o755)
	writeFile(t, filepath.Join(root, "README"), "docs", 0o600)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o750))

	resolve := func(main string) (extension.Entry, error) {
		return extension.ResolveEntry(root, &extension.Manifest{ID: "x", Main: main})
	}

	e, err := resolve("built-in")
	require.NoError(t, err)
	assert.Equal(t, extension.Entry{Strategy: extension.StrategyDirect, Name: "x"}, e)

	e, err = resolve("builtin:container-insights")
	require.NoError(t, err)
	assert.Equal(t, "container-insights", e.Name)

	e, err = resolve("main.lua")
	require.NoError(t, err)
	assert.Equal(t, extension.StrategyLua, e.Strategy)
	assert.Equal(t, filepath.Join(root, "main.lua"), e.Path)

	e, err = resolve("bin/ext")
	require.NoError(t, err)
	assert.Equal(t, extension.StrategySandboxed, e.Strategy)
	assert.True(t, e.Strategy.Isolated())

	for _, bad := range []string{"", "builtin:", "../escape", "/etc/passwd", "missing.lua", "README", "dir"} {
		_, err := resolve(bad)
		errutil.AssertErrorCode(t, err, extension.CodeEntryUnresolvable)
	}
}

func TestOrder(t *testing.T) {
	cand := func(id string, deps ...string) extension.Candidate {
		m := &extension.Manifest{ID: id, Dependencies: map[string]string{}}
		for _, d := range deps {
			m.Dependencies[d] = "*"
		}
		return extension.Candidate{Manifest: m}
	}
	ids := func(cs []extension.Candidate) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Manifest.ID)
		}
		return out
	}

	ordered, cycle := extension.Order([]extension.Candidate{
		cand("c", "b"), cand("b", "a"), cand("a"), cand("z", "external"),
	})
	assert.Equal(t, []string{"a", "b", "c", "z"}, ids(ordered))
	assert.Empty(t, cycle)

	ordered, cycle = extension.Order([]extension.Candidate{
		cand("x", "y"), cand("y", "x"), cand("free"),
	})
	assert.Equal(t, []string{"free"}, ids(ordered))
	assert.Equal(t, []string{"x", "y"}, ids(cycle))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one", "extension.yaml"), "id: one\nname: One\nversion: 1.0.0\nmain: built-in\n", 0o600)
	writeFile(t, filepath.Join(dir, "two", "extension.json"), `{"id":"two","name":"Two","version":"1.0.0","main":"built-in"}`, 0o600)
	writeFile(t, filepath.Join(dir, "copy", "extension.yaml"), "id: one\nname: Copy\nversion: 2.0.0\nmain: built-in\n", 0o600)
	writeFile(t, filepath.Join(dir, "broken", "extension.yaml"), "id: [", 0o600)
	writeFile(t, filepath.Join(dir, "empty", ".keep"), "", 0o600)
	writeFile(t, filepath.Join(dir, "stray.yaml"), "id: stray", 0o600)

	found, err := extension.Discover(dir)
	require.NoError(t, err)

	var ids []string
	for _, c := range found {
		ids = append(ids, c.Manifest.ID+"@"+c.Manifest.Version)
	}
	// ReadDir is sorted, so "copy" is seen before "one".
	assert.Equal(t, []string{"one@2.0.0", "two@1.0.0"}, ids)

	none, err := extension.Discover(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContributions(t *testing.T) {
	c := extension.NewContributions()
	c.Add(&extension.Manifest{ID: "k8s", Contributes: extension.Contributes{
		Commands: []extension.CommandContribution{
			{Command: "k8s.apply", Title: "Apply", Enablement: "cluster.connected"},
			{Command: "k8s.logs", Title: "Logs"},
		},
		Views: []extension.ViewContribution{
			{ID: "k8s.pods", Name: "Pods", When: "cluster.connected"},
			{ID: "k8s.web", Name: "Dashboard", Type: extension.ViewWebview},
		},
		Menus: map[string][]extension.MenuItem{
			"view/title": {
				{Command: "k8s.logs", Group: "z"},
				{Command: "k8s.apply", Group: "a", When: "view == 'k8s.pods'"},
			},
		},
		Keybindings: []extension.Keybinding{{Command: "k8s.apply", Key: "ctrl+a", When: "editorLangId == 'yaml'"}},
	}})

	offline := when.Context{}
	online := when.Context{"cluster.connected": true, "view": "k8s.pods", "editorLangId": "yaml"}

	cmds := c.Commands(offline)
	require.Len(t, cmds, 2)
	assert.False(t, cmds[0].Enabled)
	assert.True(t, cmds[1].Enabled)
	assert.Equal(t, "k8s", cmds[0].ExtensionID)

	views := c.Views(offline)
	require.Len(t, views, 1)
	assert.Equal(t, extension.ViewWebview, views[0].Type)
	views = c.Views(online)
	require.Len(t, views, 2)
	assert.Equal(t, extension.ViewTree, views[0].Type)

	assert.Len(t, c.Menu("view/title", offline), 1)
	menu := c.Menu("view/title", online)
	require.Len(t, menu, 2)
	assert.Equal(t, "k8s.apply", menu[0].Command)

	assert.Empty(t, c.Keybindings(offline))
	assert.Len(t, c.Keybindings(online), 1)

	owner, ok := c.Owner("k8s.logs")
	assert.True(t, ok)
	assert.Equal(t, "k8s", owner)

	c.Remove("k8s")
	assert.Empty(t, c.Commands(online))
	_, ok = c.Owner("k8s.logs")
	assert.False(t, ok)
}

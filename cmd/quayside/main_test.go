// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/backend"
	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/pkg/errutil"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("DATABASE_URL", "")
}

const calcManifest = `id: calc
name: Calculator
version: 0.3.0
main: main.lua
activationEvents:
  - onCommand:calc.add
contributes:
  commands:
    - command: calc.add
      title: Add
`

const calcScript = `
function activate(ctx)
	host.commands.register("calc.add", function(a, b)
		return a + b
	end)
end
`

func writePackage(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600))
	}
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	isolate(t)
	cfg := config.Default()
	cfg.ExtensionsDir = t.TempDir()
	cfg.WorkspaceDir = t.TempDir()
	cfg.Storage = config.StorageConfig{Driver: config.DriverMemory}
	cfg.Sandbox.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func testDeps(runner backend.Runner) HostDeps {
	return HostDeps{Runner: runner, In: strings.NewReader(""), Out: new(bytes.Buffer)}
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	isolate(t)
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "list", "validate", "exec", "schema", "migrate"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	isolate(t)
	configFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config=/etc/quayside.yaml", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/etc/quayside.yaml", configFile)
}

func TestExec_LazyLuaExtension(t *testing.T) {
	cfg := testConfig(t)
	writePackage(t, cfg.ExtensionsDir, "calc", map[string]string{
		"extension.yaml": calcManifest,
		"main.lua":       calcScript,
	})

	out := new(bytes.Buffer)
	err := runExec(context.Background(), out, testDeps(&backend.FakeRunner{}), cfg, "calc.add", []string{"2", "3"})
	require.NoError(t, err)
	assert.JSONEq(t, "5", out.String())
}

func TestExec_BuiltinThroughBackend(t *testing.T) {
	cfg := testConfig(t)
	runner := &backend.FakeRunner{Responses: map[string]backend.Result{
		"docker ps --no-trunc --format {{json .}} --all": {Stdout: `{"ID":"a1","Names":"web","Image":"nginx","State":"running"}
{"ID":"b2","Names":"db","Image":"postgres","State":"exited"}
`},
	}}

	out := new(bytes.Buffer)
	err := runExec(context.Background(), out, testDeps(runner), cfg, "containers.summary", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":2,"running":1,"stopped":1,"byImage":{"nginx":1,"postgres":1}}`, out.String())
}

func TestExec_UnknownCommand(t *testing.T) {
	cfg := testConfig(t)
	err := runExec(context.Background(), new(bytes.Buffer), testDeps(&backend.FakeRunner{}), cfg, "nope.nothing", nil)
	errutil.AssertErrorCode(t, err, "COMMAND_NOT_FOUND")
}

func TestExecCmd_BadLine(t *testing.T) {
	isolate(t)
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"exec", "--line", "'unterminated"})
	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}

func TestParseArgs(t *testing.T) {
	got := parseArgs([]string{"3", "true", `{"a":1}`, "hello world", "null"})
	assert.Equal(t, []any{float64(3), true, map[string]any{"a": float64(1)}, "hello world", nil}, got)
}

func TestList_JSON(t *testing.T) {
	cfg := testConfig(t)
	writePackage(t, cfg.ExtensionsDir, "calc", map[string]string{
		"extension.yaml": calcManifest,
		"main.lua":       calcScript,
	})

	out := new(bytes.Buffer)
	require.NoError(t, runList(context.Background(), out, testDeps(&backend.FakeRunner{}), cfg, true, true))

	var got listOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	states := make(map[string]extension.State)
	for _, st := range got.Extensions {
		states[st.ID] = st.State
	}
	assert.Equal(t, extension.StatePending, states["calc"])
	assert.Equal(t, extension.StateActive, states["container-insights"])

	var commands []string
	for _, c := range got.Commands {
		commands = append(commands, c.Command)
	}
	assert.Contains(t, commands, "containers.summary")
	assert.NotContains(t, commands, "calc.add", "pending extensions contribute nothing yet")
}

func TestList_Table(t *testing.T) {
	cfg := testConfig(t)
	out := new(bytes.Buffer)
	require.NoError(t, runList(context.Background(), out, testDeps(&backend.FakeRunner{}), cfg, false, false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out.String(), "container-insights")
}

func TestValidate(t *testing.T) {
	root := t.TempDir()

	good := writePackage(t, root, "calc", map[string]string{
		"extension.yaml": calcManifest,
		"main.lua":       calcScript,
	})
	out := new(bytes.Buffer)
	require.NoError(t, runValidate(out, good))
	assert.Equal(t, "calc 0.3.0 OK (lua)\n", out.String())

	unknownField := writePackage(t, root, "extra", map[string]string{
		"extension.yaml": calcManifest + "colour: blue\n",
		"main.lua":       calcScript,
	})
	errutil.AssertErrorCode(t, runValidate(new(bytes.Buffer), unknownField), extension.CodeManifestInvalid)

	missingEntry := writePackage(t, root, "missing", map[string]string{
		"extension.yaml": calcManifest,
	})
	errutil.AssertErrorCode(t, runValidate(new(bytes.Buffer), missingEntry), extension.CodeEntryUnresolvable)

	errutil.AssertErrorCode(t, runValidate(new(bytes.Buffer), t.TempDir()), extension.CodeManifestInvalid)
}

func TestSchemaCmd(t *testing.T) {
	isolate(t)
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"schema"})
	require.NoError(t, cmd.Execute())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, extension.SchemaID, doc["$id"])
}

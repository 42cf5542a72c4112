// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/samber/oops"
)

// Strategy is how an extension's code is run.
type Strategy string

// Strategies. Direct and Lua run in the host process; Sandboxed runs in a
// child process reached only through the isolation channel.
const (
	StrategyDirect    Strategy = "direct"
	StrategyLua       Strategy = "lua"
	StrategySandboxed Strategy = "sandboxed"
)

// Isolated reports whether the strategy keeps extension code out of the
// host's memory.
func (s Strategy) Isolated() bool {
	return s == StrategySandboxed
}

// BuiltinMain is the main value that selects the built-in catalog entry
// named after the extension id.
const BuiltinMain = "built-in"

const builtinPrefix = "builtin:"

// Entry is a resolved entry point.
type Entry struct {
	Strategy Strategy
	// Name is the built-in catalog key for StrategyDirect.
	Name string
	// Path is the absolute file for StrategyLua and StrategySandboxed.
	Path string
}

func unresolvable(m *Manifest) oops.OopsErrorBuilder {
	return oops.Code(CodeEntryUnresolvable).In("extension").With("extension", m.ID).With("main", m.Main)
}

// ResolveEntry maps the manifest's main to an entry point inside root.
// Paths must stay inside root, exist and be regular files; anything that is
// not a .lua script must be executable.
func ResolveEntry(root string, m *Manifest) (Entry, error) {
	main := strings.TrimSpace(m.Main)
	switch {
	case main == "":
		return Entry{}, unresolvable(m).Errorf("main is empty")
	case main == BuiltinMain:
		return Entry{Strategy: StrategyDirect, Name: m.ID}, nil
	case strings.HasPrefix(main, builtinPrefix):
		name := strings.TrimPrefix(main, builtinPrefix)
		if name == "" {
			return Entry{}, unresolvable(m).Errorf("built-in entry has no name")
		}
		return Entry{Strategy: StrategyDirect, Name: name}, nil
	}

	rel := filepath.FromSlash(main)
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return Entry{}, unresolvable(m).Errorf("main %q escapes the package root", main)
	}
	if root == "" {
		return Entry{}, unresolvable(m).Errorf("main %q needs a package root", main)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Entry{}, unresolvable(m).Wrapf(err, "resolve package root")
	}
	path, err := securejoin.SecureJoin(absRoot, rel)
	if err != nil {
		return Entry{}, unresolvable(m).Wrapf(err, "resolve main")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, unresolvable(m).With("path", path).Wrapf(err, "main not found")
	}
	if !info.Mode().IsRegular() {
		return Entry{}, unresolvable(m).With("path", path).Errorf("main %q is not a regular file", main)
	}

	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return Entry{Strategy: StrategyLua, Path: path}, nil
	}
	if info.Mode().Perm()&0o111 == 0 {
		return Entry{}, unresolvable(m).With("path", path).Errorf("main %q is not executable", main)
	}
	return Entry{Strategy: StrategySandboxed, Path: path}, nil
}

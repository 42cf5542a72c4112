// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package builtin holds the extensions compiled into the host. Their
// manifests are embedded and they load through the direct catalog like any
// other built-in.
package builtin

import (
	"embed"
	"io/fs"
	"path"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/extension/direct"
)

//go:embed manifests/*.yaml
var manifests embed.FS

var factories = map[string]direct.Factory{
	"container-insights":      func() direct.Extension { return &ContainerInsights{} },
	"orchestration-assistant": func() direct.Extension { return &OrchestrationAssistant{} },
	"automation-helper":       func() direct.Extension { return &AutomationHelper{} },
}

// Register adds every built-in to catalog.
func Register(catalog *direct.Catalog) error {
	for name, f := range factories {
		if err := catalog.Register(name, f); err != nil {
			return err
		}
	}
	return nil
}

// Candidates returns the built-ins' manifests ready for Runtime.LoadAll.
func Candidates() ([]extension.Candidate, error) {
	files, err := fs.Glob(manifests, "manifests/*.yaml")
	if err != nil {
		return nil, oops.In("builtin").Wrapf(err, "list manifests")
	}
	out := make([]extension.Candidate, 0, len(files))
	for _, name := range files {
		data, err := manifests.ReadFile(name)
		if err != nil {
			return nil, oops.In("builtin").With("manifest", name).Wrapf(err, "read manifest")
		}
		m, err := extension.ParseManifest(data)
		if err != nil {
			return nil, oops.In("builtin").With("manifest", path.Base(name)).Wrap(err)
		}
		out = append(out, extension.Candidate{Manifest: m})
	}
	return out, nil
}

func toInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func argString(args []any, i int) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}
	return ""
}

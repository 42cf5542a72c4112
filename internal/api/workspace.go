// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/quayside/quayside/internal/capability"
	"github.com/quayside/quayside/internal/configuration"
)

// Workspace is the workspace namespace.
type Workspace struct {
	binding
}

// Configuration is a section-scoped view of host configuration.
type Configuration struct {
	section string
	w       *Workspace
}

// GetConfiguration returns an accessor for keys below section. An empty
// section addresses the whole configuration.
func (w *Workspace) GetConfiguration(section string) *Configuration {
	return &Configuration{section: section, w: w}
}

func (c *Configuration) key(k string) string {
	switch {
	case c.section == "":
		return k
	case k == "":
		return c.section
	default:
		return c.section + "." + k
	}
}

// Get returns the value of k, or def when unset.
func (c *Configuration) Get(k string, def any) any {
	if c.w.deps.Configuration == nil {
		return def
	}
	if v, ok := c.w.deps.Configuration.Get(c.key(k)); ok {
		return v
	}
	return def
}

// Has reports whether k has a value.
func (c *Configuration) Has(k string) bool {
	if c.w.deps.Configuration == nil {
		return false
	}
	_, ok := c.w.deps.Configuration.Get(c.key(k))
	return ok
}

// Update sets k. Extensions may only write keys they contributed or keys no
// extension declares. A nil value resets k to its default.
func (c *Configuration) Update(k string, value any) error {
	if err := c.w.live(); err != nil {
		return err
	}
	if c.w.deps.Configuration == nil {
		return errUnavailable(c.w.extensionID(), "configuration")
	}
	return c.w.deps.Configuration.Update(c.w.extensionID(), c.key(k), value)
}

// Values returns every set key below the section, relative to it.
func (c *Configuration) Values() map[string]any {
	if c.w.deps.Configuration == nil {
		return map[string]any{}
	}
	return c.w.deps.Configuration.Section(c.section)
}

// OnDidChangeConfiguration calls listener for every change at or below
// section. The subscription is released on unload.
func (w *Workspace) OnDidChangeConfiguration(section string, listener func(configuration.ChangeEvent)) (Disposable, error) {
	if err := w.live(); err != nil {
		return nil, err
	}
	if w.deps.Configuration == nil {
		return DisposeFunc(func() {}), nil
	}
	unsub := w.deps.Configuration.OnDidChange(section, listener)
	return w.track(DisposeFunc(unsub)), nil
}

// TextDocument is a read-only snapshot of a file.
type TextDocument struct {
	URI        string
	LanguageID string
	text       string
	lines      []string
}

// Text returns the whole document.
func (d *TextDocument) Text() string { return d.text }

// LineCount returns the number of lines.
func (d *TextDocument) LineCount() int { return len(d.lines) }

// LineAt returns line i without its terminator, or "" when out of range.
func (d *TextDocument) LineAt(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

var languages = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".js":    "javascript",
	".py":    "python",
	".rs":    "rust",
	".lua":   "lua",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".sh":    "shellscript",
	".tf":    "terraform",
	".sql":   "sql",
	".proto": "proto3",
}

// LanguageID guesses a document language from its path.
func LanguageID(uri string) string {
	base := path.Base(uri)
	switch {
	case base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile."):
		return "dockerfile"
	case base == "Makefile":
		return "makefile"
	}
	if id, ok := languages[strings.ToLower(path.Ext(base))]; ok {
		return id
	}
	return "plaintext"
}

// OpenTextDocument reads uri through the host file system. It requires
// filesystem.read.
func (w *Workspace) OpenTextDocument(ctx context.Context, uri string) (*TextDocument, error) {
	if err := w.require(capability.Filesystem + ".read"); err != nil {
		return nil, err
	}
	if w.deps.FileSystem == nil {
		return nil, errUnavailable(w.extensionID(), "filesystem")
	}
	text, err := w.deps.FileSystem.ReadFile(ctx, uri)
	if err != nil {
		return nil, errBackend(w.extensionID(), "workspace.openTextDocument", err)
	}
	return &TextDocument{
		URI:        uri,
		LanguageID: LanguageID(uri),
		text:       text,
		lines:      strings.Split(text, "\n"),
	}, nil
}

// ApplyEdit applies edit and reports whether every document was updated.
// It never fails with an error: a denied capability or a failed write is
// logged and reported as false.
func (w *Workspace) ApplyEdit(ctx context.Context, edit WorkspaceEdit) bool {
	if err := w.require(capability.Filesystem + ".write"); err != nil {
		slog.WarnContext(ctx, "workspace edit rejected", "extension", w.extensionID(), "error", err)
		return false
	}
	if w.deps.FileSystem == nil {
		return false
	}
	uris := make([]string, 0, len(edit.Edits))
	for uri := range edit.Edits {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	ok := true
	for _, uri := range uris {
		if err := w.deps.FileSystem.ApplyEdits(ctx, uri, edit.Edits[uri]); err != nil {
			slog.WarnContext(ctx, "workspace edit failed",
				"extension", w.extensionID(), "uri", uri, "error", err)
			ok = false
		}
	}
	return ok
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package workspace is the host file system collaborator. Every path an
// extension names is confined to the workspace root.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
)

// Error codes.
const (
	CodeOutsideRoot = "WORKSPACE_OUTSIDE_ROOT"
	CodeBadEdit     = "WORKSPACE_BAD_EDIT"
)

// FileSystem implements api.FileSystem below Root.
type FileSystem struct {
	root string
}

var _ api.FileSystem = (*FileSystem)(nil)

// New roots a file system at dir.
func New(dir string) (*FileSystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, oops.In("workspace").With("dir", dir).Wrapf(err, "resolve workspace root")
	}
	return &FileSystem{root: abs}, nil
}

// Root is the absolute workspace directory.
func (f *FileSystem) Root() string {
	return f.root
}

// Resolve maps uri to a path inside the root. uri may be a file:// URI,
// an absolute path below the root, or a path relative to it. Symlinks are
// resolved within the root.
func (f *FileSystem) Resolve(uri string) (string, error) {
	p := strings.TrimPrefix(uri, "file://")
	if p == "" {
		return "", oops.Code(CodeOutsideRoot).In("workspace").Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(f.root, filepath.Clean(p))
		if err != nil || !filepath.IsLocal(rel) {
			return "", oops.Code(CodeOutsideRoot).In("workspace").With("uri", uri).
				Errorf("%s is outside the workspace", uri)
		}
		p = rel
	}
	path, err := securejoin.SecureJoin(f.root, p)
	if err != nil {
		return "", oops.Code(CodeOutsideRoot).In("workspace").With("uri", uri).Wrapf(err, "resolve %s", uri)
	}
	return path, nil
}

// ReadFile implements api.FileSystem.
func (f *FileSystem) ReadFile(_ context.Context, uri string) (string, error) {
	path, err := f.Resolve(uri)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- confined by Resolve
	if err != nil {
		return "", oops.In("workspace").With("uri", uri).Wrapf(err, "read %s", uri)
	}
	return string(data), nil
}

// ApplyEdits implements api.FileSystem. Edits address the document as it
// was before any of them applied and must not overlap. The file is
// replaced atomically.
func (f *FileSystem) ApplyEdits(_ context.Context, uri string, edits []api.TextEdit) error {
	path, err := f.Resolve(uri)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "stat %s", uri)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- confined by Resolve
	if err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "read %s", uri)
	}

	out, err := Apply(string(data), edits)
	if err != nil {
		return oops.With("uri", uri).Wrap(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".quayside-edit-*")
	if err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(out); err != nil {
		_ = tmp.Close()
		return oops.In("workspace").With("uri", uri).Wrapf(err, "write %s", uri)
	}
	if err := tmp.Close(); err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "write %s", uri)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "chmod %s", uri)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return oops.In("workspace").With("uri", uri).Wrapf(err, "replace %s", uri)
	}
	return nil
}

// Apply applies edits to text. Positions count runes within a line and
// are clamped to the document.
func Apply(text string, edits []api.TextEdit) (string, error) {
	type span struct {
		start, end int
		text       string
	}
	lineStarts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	offset := func(p api.Position) int {
		if p.Line < 0 {
			return 0
		}
		if p.Line >= len(lineStarts) {
			return len(text)
		}
		start := lineStarts[p.Line]
		end := len(text)
		if p.Line+1 < len(lineStarts) {
			end = lineStarts[p.Line+1] - 1
		}
		i := start
		for n := 0; n < p.Character && i < end; n++ {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
		}
		return i
	}

	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		s, t := offset(e.Range.Start), offset(e.Range.End)
		if t < s {
			return "", oops.Code(CodeBadEdit).In("workspace").
				With("range", e.Range).Errorf("edit range ends before it starts")
		}
		spans = append(spans, span{start: s, end: t, text: e.NewText})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return "", oops.Code(CodeBadEdit).In("workspace").Errorf("edits overlap")
		}
	}

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.start])
		b.WriteString(s.text)
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// Discover finds extension packages in the immediate subdirectories of dir.
// Directories without a valid manifest, and later packages that reuse an
// id, are logged and skipped. A missing dir yields no candidates.
func Discover(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.In("extension").With("dir", dir).Wrapf(err, "read extensions directory")
	}

	seen := make(map[string]string)
	var found []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		root := filepath.Join(dir, entry.Name())
		m, err := ReadManifest(root)
		if err != nil {
			slog.Warn("skipping extension with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		if prev, dup := seen[m.ID]; dup {
			slog.Warn("skipping extension with duplicate id",
				"extension", m.ID,
				"dir", entry.Name(),
				"first", prev)
			continue
		}
		seen[m.ID] = entry.Name()
		found = append(found, Candidate{Path: root, Manifest: m})
	}
	return found, nil
}

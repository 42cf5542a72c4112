// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/extension"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check an extension package without loading it",
		Long: `Validate the manifest in an extension package root against the
manifest schema and the manifest rules, and resolve its entry point.
Nothing is executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0])
		},
	}
}

func runValidate(w io.Writer, dir string) error {
	data, name, err := readManifestFile(dir)
	if err != nil {
		return err
	}
	if err := extension.ValidateSchema(data); err != nil {
		return oops.With("path", filepath.Join(dir, name)).Wrap(err)
	}
	m, err := extension.ReadManifest(dir)
	if err != nil {
		return err
	}
	entry, err := extension.ResolveEntry(dir, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s OK (%s)\n", m.ID, m.Version, entry.Strategy)
	return nil
}

func readManifestFile(dir string) ([]byte, string, error) {
	for _, name := range extension.ManifestFiles {
		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is chosen by the operator
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", oops.Code(extension.CodeManifestInvalid).With("path", dir).Wrapf(err, "read manifest")
		}
		return data, name, nil
	}
	return nil, "", oops.Code(extension.CodeManifestInvalid).With("path", dir).Errorf("no manifest found in %s", dir)
}

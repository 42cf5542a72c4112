// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/extension"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the extension manifest JSON Schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := extension.GenerateSchema()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return oops.With("operation", "write schema").Wrap(err)
			}
			return nil
		},
	}
}

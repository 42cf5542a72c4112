// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/when"
)

type listOutput struct {
	Extensions []extension.Status             `json:"extensions"`
	Commands   []extension.ContributedCommand `json:"commands,omitempty"`
}

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	var asJSON, commands bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load extensions and show their state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), cmd.OutOrStdout(), HostDeps{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}, cfg, asJSON, commands)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&commands, "commands", false, "also list contributed commands of loaded extensions")
	return cmd
}

func runList(ctx context.Context, w io.Writer, deps HostDeps, cfg *config.Config, asJSON, commands bool) error {
	h, err := newHost(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close(context.Background()) }()

	if _, err := h.loadAll(ctx); err != nil {
		return err
	}

	out := listOutput{Extensions: h.runtime.List()}
	if commands {
		out.Commands = h.runtime.Contributions().Commands(when.Context{})
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tSTATE\tSTRATEGY\tERROR")
	for _, st := range out.Extensions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.ID, st.Version, st.State, st.Strategy, st.Error)
	}
	if commands {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "COMMAND\tTITLE\tEXTENSION\tENABLED")
		for _, c := range out.Commands {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", c.Command, c.Title, c.ExtensionID, c.Enabled)
		}
	}
	return tw.Flush()
}

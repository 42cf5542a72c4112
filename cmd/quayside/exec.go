// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/kballard/go-shellquote"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/config"
)

// NewExecCmd creates the exec subcommand.
func NewExecCmd() *cobra.Command {
	var line string

	cmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Load extensions and execute one command",
		Long: `Load extensions, run a command by id and print its result as JSON.
Arguments that parse as JSON are passed decoded ("3", "true",
'{"a":1}'); anything else is passed as a string. With --line the whole
invocation is given as one shell-quoted string.`,
		Example: `  quayside exec containers.summary
  quayside exec k8s.podHealth kube-system
  quayside exec --line "echo.say 'hello world' again"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if line != "" {
				split, err := shellquote.Split(line)
				if err != nil {
					return oops.Code(config.CodeInvalid).With("line", line).Wrapf(err, "parse --line")
				}
				args = append(split, args...)
			}
			if len(args) == 0 {
				return oops.Code(config.CodeInvalid).Errorf("a command id is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runExec(cmd.Context(), cmd.OutOrStdout(), HostDeps{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}, cfg, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&line, "line", "", "command and arguments as one shell-quoted string")
	return cmd
}

// parseArgs decodes each argument as JSON, falling back to the raw string.
func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		out[i] = v
	}
	return out
}

func runExec(ctx context.Context, w io.Writer, deps HostDeps, cfg *config.Config, id string, args []string) error {
	h, err := newHost(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close(context.Background()) }()

	if _, err := h.loadAll(ctx); err != nil {
		return err
	}

	result, err := h.runtime.ExecuteCommand(ctx, id, parseArgs(args)...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Quayside CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quayside",
		Short: "Quayside - an extension host for infrastructure tooling",
		Long: `Quayside loads extension packages, isolates them according to their
entry point, and exposes container, orchestration and automation
operations to them through a capability-checked API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/quayside/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewExecCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.HostVersion == "" && version != "dev" {
		cfg.HostVersion = version
	}
	logger := logging.Setup("quayside", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel), cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, nil
}

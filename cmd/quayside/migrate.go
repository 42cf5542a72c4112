// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/memento/postgres"
)

type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL memento schema",
		Long: `Apply or roll back the memento schema used by the postgres storage
driver. The database is taken from storage.dsn or DATABASE_URL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Drop the memento schema and every stored value",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Rolled back all migrations")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("Version: %d (dirty)\n", v)
				return nil
			}
			cmd.Printf("Version: %d\n", v)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code(postgres.CodeInvalidVersion).With("version", args[0]).Wrapf(err, "parse version")
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

func withMigrator(fn func(*cobra.Command, migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.DSN == "" {
			return oops.Code(config.CodeInvalid).Errorf("storage.dsn or DATABASE_URL is required")
		}
		m, err := newMigrator(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(cmd, m, args)
	}
}

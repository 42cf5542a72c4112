// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load all extensions and run until interrupted",
		Long: `Load the built-in extensions and every package in the extensions
directory, serve metrics and health probes when metrics-addr is set,
and block until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, HostDeps{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}, cfg)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps HostDeps, cfg *config.Config) error {
	h, err := newHost(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to start host: %w", err)
	}

	var ready atomic.Bool
	g, gctx := errgroup.WithContext(ctx)

	if addr := h.cfg.MetricsAddr; addr != "" {
		obs := observability.NewServer(addr, version, ready.Load)
		extension.RegisterMetrics(obs.Registry())
		command.RegisterMetrics(obs.Registry())
		memento.RegisterMetrics(obs.Registry())
		defer obs.Metrics().Observe(h.runtime.Bus())()

		g.Go(func() error {
			if err := obs.Run(gctx); err != nil {
				return fmt.Errorf("observability server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if _, err := h.loadAll(gctx); err != nil {
			return err
		}
		ready.Store(true)
		cmd.Println("Quayside host started")
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Close(shutdownCtx); err != nil && runErr == nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if runErr != nil {
		return runErr
	}
	cmd.Println("Quayside host stopped")
	return nil
}

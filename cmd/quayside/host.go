// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/backend"
	"github.com/quayside/quayside/internal/backend/ansible"
	"github.com/quayside/quayside/internal/backend/docker"
	"github.com/quayside/quayside/internal/backend/kube"
	"github.com/quayside/quayside/internal/builtin"
	"github.com/quayside/quayside/internal/bus"
	"github.com/quayside/quayside/internal/config"
	"github.com/quayside/quayside/internal/configuration"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/extension/direct"
	"github.com/quayside/quayside/internal/extension/lua"
	"github.com/quayside/quayside/internal/extension/sandbox"
	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/internal/memento/postgres"
	"github.com/quayside/quayside/internal/memento/sqlite"
	"github.com/quayside/quayside/internal/ui"
	"github.com/quayside/quayside/internal/workspace"
	"github.com/quayside/quayside/internal/xdg"
)

// HostDeps are the seams replaced in tests.
type HostDeps struct {
	// Runner executes backend tools. Defaults to backend.ExecRunner.
	Runner backend.Runner
	// StoreFactory opens the memento store. Defaults to openStore.
	StoreFactory func(ctx context.Context, cfg config.StorageConfig) (memento.Store, error)
	// SandboxFactory starts sandboxed extensions. Defaults to a go-plugin factory.
	SandboxFactory sandbox.ClientFactory
	// In and Out carry prompts and window output.
	In  io.Reader
	Out io.Writer
}

// host is a runtime wired to its collaborators.
type host struct {
	cfg     *config.Config
	runtime *extension.Runtime
	store   memento.Store
	ui      *ui.Headless
}

func openStore(ctx context.Context, cfg config.StorageConfig) (memento.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memento.NewMemoryStore(), nil
	case config.DriverPostgres:
		store, err := postgres.Connect(ctx, cfg.DSN, postgres.ConnectOptions{})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// newHost builds the runtime described by cfg. The caller must Close it.
func newHost(ctx context.Context, cfg *config.Config, deps HostDeps) (*host, error) {
	if deps.Runner == nil {
		deps.Runner = backend.ExecRunner{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.SandboxFactory == nil {
		deps.SandboxFactory = &sandbox.PluginFactory{}
	}

	containers, err := docker.New(cfg.Backends.Docker, deps.Runner)
	if err != nil {
		return nil, err
	}
	orchestration, err := kube.New(cfg.Backends.Kubectl, deps.Runner)
	if err != nil {
		return nil, err
	}
	automation, err := ansible.New(cfg.Backends.AnsiblePlaybook, deps.Runner)
	if err != nil {
		return nil, err
	}
	fs, err := workspace.New(cfg.WorkspaceDir)
	if err != nil {
		return nil, err
	}

	catalog := direct.NewCatalog()
	if err := builtin.Register(catalog); err != nil {
		return nil, err
	}
	loaders := []extension.Loader{catalog, lua.NewLoader()}
	if cfg.Sandbox.Enabled {
		loaders = append(loaders, sandbox.NewLoader(deps.SandboxFactory))
	}

	store, err := deps.StoreFactory(ctx, cfg.Storage)
	if err != nil {
		return nil, oops.In("host").With("driver", cfg.Storage.Driver).Wrapf(err, "open memento store")
	}

	window := ui.New(deps.Out, ui.NewLinePrompter(deps.In, deps.Out))
	events := bus.New()
	rt, err := extension.New(extension.Options{
		HostVersion: cfg.HostVersion,
		LoadTimeout: cfg.LoadTimeout,
		Loaders:     loaders,
		Deps: api.Deps{
			Bus:           events,
			Configuration: configuration.NewService(events, cfg.Settings),
			Store:         store,
			FileSystem:    fs,
			UI:            window,
			Containers:    containers,
			Orchestration: orchestration,
			Automation:    automation,
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	slog.Debug("host ready",
		"workspace", fs.Root(),
		"storage", cfg.Storage.Driver,
		"sandbox", cfg.Sandbox.Enabled)
	return &host{cfg: cfg, runtime: rt, store: store, ui: window}, nil
}

// loadAll loads the built-ins and the packages in the extensions directory.
func (h *host) loadAll(ctx context.Context) (extension.LoadReport, error) {
	cands, err := builtin.Candidates()
	if err != nil {
		return extension.LoadReport{}, err
	}
	found, err := extension.Discover(h.cfg.ExtensionsDir)
	if err != nil {
		return extension.LoadReport{}, err
	}
	report := h.runtime.LoadAll(ctx, append(cands, found...))
	for id, err := range report.Failed {
		slog.Warn("extension failed to load", "extension", id, "error", err)
	}
	slog.Info("extensions loaded",
		"loaded", len(report.Loaded),
		"pending", len(report.Pending),
		"failed", len(report.Failed))
	return report, nil
}

// Close unloads every extension and closes the store.
func (h *host) Close(ctx context.Context) error {
	rtErr := h.runtime.Close(ctx)
	return errors.Join(rtErr, h.store.Close())
}

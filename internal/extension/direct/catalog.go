// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package direct runs built-in extensions compiled into the host. Each
// built-in is registered in a Catalog under the name its manifest's main
// refers to.
package direct

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/extension"
)

// Extension is the in-process implementation of an extension.
type Extension interface {
	Activate(ctx context.Context, ec *extension.Context) error
}

// Deactivator is implemented by extensions with cleanup beyond their
// subscriptions.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// LocalCommander is implemented by extensions with private commands.
type LocalCommander interface {
	LocalCommands() map[string]command.Handler
}

// Factory builds a fresh extension value for each load.
type Factory func() Extension

// Catalog maps built-in names to factories. It is the Loader for
// StrategyDirect.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var _ extension.Loader = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a built-in. Names are unique.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return oops.In("direct").Errorf("built-in needs a name and a factory")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.factories[name]; dup {
		return oops.In("direct").With("builtin", name).Errorf("built-in %s is already registered", name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error, for package init.
func (c *Catalog) MustRegister(name string, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

// Names lists registered built-ins, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Strategy implements extension.Loader.
func (c *Catalog) Strategy() extension.Strategy {
	return extension.StrategyDirect
}

// Load implements extension.Loader.
func (c *Catalog) Load(_ context.Context, req extension.LoadRequest) (extension.Module, error) {
	c.mu.RLock()
	f, ok := c.factories[req.Entry.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, oops.Code(extension.CodeEntryUnresolvable).
			In("direct").
			With("extension", req.Manifest.ID).
			With("builtin", req.Entry.Name).
			Errorf("no built-in extension named %q", req.Entry.Name)
	}
	ext := f()
	if ext == nil {
		return nil, oops.In("direct").With("builtin", req.Entry.Name).Errorf("built-in factory returned nil")
	}
	return &module{ext: ext}, nil
}

type module struct {
	ext Extension
}

func (m *module) Activate(ctx context.Context, ec *extension.Context) error {
	return m.ext.Activate(ctx, ec)
}

func (m *module) Deactivate(ctx context.Context) error {
	if d, ok := m.ext.(Deactivator); ok {
		return d.Deactivate(ctx)
	}
	return nil
}

func (m *module) Commands() map[string]command.Handler {
	if lc, ok := m.ext.(LocalCommander); ok {
		return lc.LocalCommands()
	}
	return nil
}

func (m *module) Close() error {
	if c, ok := m.ext.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Funcs builds an extension from plain functions.
type Funcs struct {
	OnActivate   func(ctx context.Context, ec *extension.Context) error
	OnDeactivate func(ctx context.Context) error
	Local        map[string]command.Handler
}

// Activate implements Extension.
func (f *Funcs) Activate(ctx context.Context, ec *extension.Context) error {
	if f.OnActivate == nil {
		return nil
	}
	return f.OnActivate(ctx, ec)
}

// Deactivate implements Deactivator.
func (f *Funcs) Deactivate(ctx context.Context) error {
	if f.OnDeactivate == nil {
		return nil
	}
	return f.OnDeactivate(ctx)
}

// LocalCommands implements LocalCommander.
func (f *Funcs) LocalCommands() map[string]command.Handler {
	return f.Local
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"context"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/memento"
)

// Context is handed to an extension's activate.
type Context struct {
	ExtensionID   string
	ExtensionPath string
	Manifest      *Manifest
	API           *api.API

	GlobalState    *memento.Memento
	WorkspaceState *memento.Memento

	// Subscriptions are disposed when the extension unloads. Resources
	// acquired through API are already tracked here.
	Subscriptions *api.Disposables
}

// Module is loaded extension code behind an isolation strategy.
type Module interface {
	// Activate runs the extension's activate with ec.
	Activate(ctx context.Context, ec *Context) error
	// Deactivate runs the extension's deactivate. Modules without one
	// return nil.
	Deactivate(ctx context.Context) error
	// Commands returns the extension-private commands, keyed by id. They
	// are reachable through executeCommand but not listed in the registry.
	Commands() map[string]command.Handler
	// Close tears down the isolation handle. It must not block on the
	// extension and must be safe to call more than once.
	Close() error
}

// LoadRequest is everything a Loader needs to instantiate extension code.
type LoadRequest struct {
	Manifest *Manifest
	Path     string
	Entry    Entry
	API      *api.API
}

// Loader instantiates code for one strategy.
type Loader interface {
	Strategy() Strategy
	Load(ctx context.Context, req LoadRequest) (Module, error)
}

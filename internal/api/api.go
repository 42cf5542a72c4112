// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package api is the Capability API: the surface the host hands to each
// extension instance. Every namespace is bound to one extension, enforces
// that extension's declared capabilities, and records what it acquires so the
// runtime can release it on unload.
package api

import (
	"context"
	"sync/atomic"

	"github.com/quayside/quayside/internal/bus"
	"github.com/quayside/quayside/internal/capability"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/configuration"
	"github.com/quayside/quayside/internal/memento"
)

// Executor runs commands across the global registry and every instance's
// local commands. The runtime implements it.
type Executor interface {
	ExecuteCommand(ctx context.Context, id string, args ...any) (any, error)
	CommandIDs() []string
}

// Deps are the host collaborators shared by every extension's API. Nil
// backends surface as BACKEND_UNAVAILABLE; a nil UI or FileSystem makes the
// matching calls no-ops that report failure.
type Deps struct {
	Registry      *command.Registry
	Executor      Executor
	Bus           *bus.Bus
	Configuration *configuration.Service
	Store         memento.Store
	Enforcer      *capability.Enforcer
	FileSystem    FileSystem
	UI            UI
	Containers    ContainerBackend
	Orchestration OrchestrationBackend
	Automation    AutomationBackend
}

// API is one extension's view of the host.
type API struct {
	ExtensionID string

	Workspace     *Workspace
	Window        *Window
	Commands      *Commands
	Events        *Events
	Containers    *Containers
	Orchestration *Orchestration
	Automation    *Automation
	Storage       *Storage

	// GlobalState and WorkspaceState are the extension's mementos.
	GlobalState    *memento.Memento
	WorkspaceState *memento.Memento

	tracker  *Disposables
	disposed atomic.Bool
}

// binding is embedded by every namespace.
type binding struct {
	api  *API
	deps Deps
}

func (b binding) extensionID() string { return b.api.ExtensionID }

// live fails once the owning extension has been unloaded.
func (b binding) live() error {
	if b.api.disposed.Load() {
		return errDisposed(b.api.ExtensionID)
	}
	return nil
}

// require checks liveness and then the capability.
func (b binding) require(capName string) error {
	if err := b.live(); err != nil {
		return err
	}
	if b.deps.Enforcer == nil {
		return capability.Denied(b.api.ExtensionID, capName)
	}
	return b.deps.Enforcer.Require(b.api.ExtensionID, capName)
}

func (b binding) track(d Disposable) Disposable {
	return b.api.tracker.Add(d)
}

// New builds the API for extensionID. Resources acquired through it are
// added to tracker; the runtime disposes tracker when the extension unloads.
func New(extensionID string, deps Deps, tracker *Disposables) *API {
	if tracker == nil {
		tracker = &Disposables{}
	}
	a := &API{ExtensionID: extensionID, tracker: tracker}
	b := binding{api: a, deps: deps}

	a.Workspace = &Workspace{binding: b}
	a.Window = &Window{binding: b}
	a.Commands = &Commands{binding: b}
	a.Events = &Events{binding: b}
	a.Containers = &Containers{binding: b}
	a.Orchestration = &Orchestration{binding: b}
	a.Automation = &Automation{binding: b}

	if deps.Store != nil {
		a.GlobalState = memento.New(deps.Store, memento.ScopeGlobal, extensionID)
		a.WorkspaceState = memento.New(deps.Store, memento.ScopeWorkspace, extensionID)
	}
	a.Storage = &Storage{binding: b, state: a.GlobalState}
	return a
}

// Tracker returns the disposal list resources are recorded on.
func (a *API) Tracker() *Disposables {
	return a.tracker
}

// Close marks the API unusable. Subsequent calls fail with
// EXTENSION_DISPOSED.
func (a *API) Close() {
	a.disposed.Store(true)
}

// Disposed reports whether Close has been called.
func (a *API) Disposed() bool {
	return a.disposed.Load()
}

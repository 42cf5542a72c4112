// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/command"
)

// State is where an extension is in its lifecycle.
type State string

// Lifecycle states. Disposed is terminal; a disposed instance is never
// reactivated.
const (
	StatePending  State = "pending"
	StateLoading  State = "loading"
	StateActive   State = "active"
	StateDisposed State = "disposed"
	StateFailed   State = "failed"
)

// Instance is a loaded, running extension.
type Instance struct {
	// InstanceID distinguishes successive loads of the same extension.
	InstanceID string
	Manifest   *Manifest
	Path       string
	Entry      Entry
	API        *api.API
	LoadedAt   time.Time

	module Module
	locals map[string]command.Handler

	mu    sync.RWMutex
	state State
}

func newInstance(m *Manifest, path string, entry Entry, a *api.API) *Instance {
	return &Instance{
		InstanceID: ulid.Make().String(),
		Manifest:   m,
		Path:       path,
		Entry:      entry,
		API:        a,
		state:      StateLoading,
	}
}

// ID returns the manifest id.
func (i *Instance) ID() string { return i.Manifest.ID }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

func (i *Instance) setState(s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s
}

func (i *Instance) local(id string) (command.Handler, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.state != StateActive {
		return nil, false
	}
	h, ok := i.locals[id]
	return h, ok
}

// LocalCommands returns the extension-private command ids, sorted.
func (i *Instance) LocalCommands() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := make([]string, 0, len(i.locals))
	for id := range i.locals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status is a point-in-time summary of an extension known to the runtime.
type Status struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	State    State    `json:"state"`
	Strategy Strategy `json:"strategy,omitempty"`
	Path     string   `json:"path,omitempty"`
	Error    string   `json:"error,omitempty"`
}

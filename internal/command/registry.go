// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry maps command ids to handlers. Ids are unique: a second
// registration of the same id is rejected and the first one stays in place.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Entry
	seq      uint64
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Entry)}
}

// Register adds handler under id on behalf of owner. The returned disposer
// removes exactly this registration, even if the id has since been
// registered again by someone else.
func (r *Registry) Register(id string, handler Handler, owner string) (Disposer, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrNilHandler(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.commands[id]; ok {
		return nil, ErrConflict(id, existing.Owner, owner)
	}

	r.seq++
	entry := Entry{ID: id, Handler: handler, Owner: owner, seq: r.seq}
	r.commands[id] = entry
	RecordRegistration(owner, 1)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(entry) })
	}, nil
}

func (r *Registry) remove(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.commands[entry.ID]
	if !ok || current.seq != entry.seq {
		return
	}
	delete(r.commands, entry.ID)
	RecordRegistration(entry.Owner, -1)
}

// Resolve returns the handler registered under id. Ids are matched exactly.
func (r *Registry) Resolve(id string) (Handler, error) {
	entry, ok := r.Lookup(id)
	if !ok {
		return nil, ErrNotFound(id)
	}
	return entry.Handler, nil
}

// Lookup returns the entry registered under id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[id]
	return entry, ok
}

// ListAll returns every registered id in lexical order.
func (r *Registry) ListAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Owned returns the ids registered by owner in lexical order.
func (r *Registry) Owned(owner string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, e := range r.commands {
		if e.Owner == owner {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RemoveOwner deletes every registration held by owner and returns how many
// were removed. The runtime calls it after running an extension's disposers;
// a non-zero result means a registration escaped its disposal list.
func (r *Registry) RemoveOwner(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.commands {
		if e.Owner == owner {
			delete(r.commands, id)
			removed++
		}
	}
	if removed > 0 {
		RecordRegistration(owner, -float64(removed))
		slog.Warn("removed leftover command registrations", "owner", owner, "count", removed)
	}
	return removed
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

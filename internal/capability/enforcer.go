// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package capability enforces the capabilities an extension declares in its
// manifest.
//
// Pattern matching uses gobwas/glob with '.' as the segment separator:
//   - '*' matches a single segment (does not cross '.')
//   - '**' matches zero or more segments (crosses '.')
//
// A manifest entry "container-ops" therefore allows "container-ops.start",
// while "container-ops.list" allows only listing.
package capability

import (
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer checks extension capabilities at runtime.
//
// Enforcer is safe for concurrent use. The zero value is ready to use.
type Enforcer struct {
	mu     sync.RWMutex
	grants map[string][]compiledGrant // extension id -> compiled grants
}

// NewEnforcer creates a capability enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{grants: make(map[string][]compiledGrant)}
}

// SetGrants replaces the grant patterns for an extension. Either every
// pattern compiles and the grants are replaced, or nothing changes.
func (e *Enforcer) SetGrants(extensionID string, patterns []string) error {
	if extensionID == "" {
		return oops.In("capability").Errorf("extension id cannot be empty")
	}

	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return oops.In("capability").With("index", i).Errorf("empty capability pattern")
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return oops.In("capability").With("pattern", pattern).Wrapf(err, "compile capability pattern")
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[extensionID] = compiled
	return nil
}

// Grant expands manifest declarations and installs them for extensionID.
func (e *Enforcer) Grant(extensionID string, declared []string) error {
	for _, d := range declared {
		if err := Validate(d); err != nil {
			return err
		}
	}
	return e.SetGrants(extensionID, Expand(declared))
}

// IsRegistered reports whether grants were ever set for extensionID.
func (e *Enforcer) IsRegistered(extensionID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.grants[extensionID]
	return ok
}

// RemoveGrants forgets an extension. Safe for unknown ids.
func (e *Enforcer) RemoveGrants(extensionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.grants, extensionID)
}

// GetGrants returns a copy of the patterns granted to an extension, or nil.
func (e *Enforcer) GetGrants(extensionID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	grants, ok := e.grants[extensionID]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// Extensions returns the ids with installed grants, sorted.
func (e *Enforcer) Extensions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.grants))
	for id := range e.grants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Check reports whether extensionID may use capability. Unknown extensions
// and empty capabilities are denied.
func (e *Enforcer) Check(extensionID, capability string) bool {
	if capability == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, grant := range e.grants[extensionID] {
		if grant.glob.Match(capability) {
			return true
		}
	}
	return false
}

// Require is Check returning a CAPABILITY_DENIED error on refusal.
func (e *Enforcer) Require(extensionID, capability string) error {
	if e.Check(extensionID, capability) {
		return nil
	}
	return Denied(extensionID, capability)
}

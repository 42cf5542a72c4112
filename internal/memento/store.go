// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package memento provides per-extension key/value persistence. State is
// partitioned first by scope and then by extension id; an extension only
// ever sees its own partition.
package memento

import (
	"context"

	"github.com/samber/oops"
)

// Scope selects one of the two independent memento partitions.
type Scope string

// Memento scopes.
const (
	ScopeGlobal    Scope = "global"
	ScopeWorkspace Scope = "workspace"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeWorkspace
}

// Key addresses one persisted value.
type Key struct {
	Scope       Scope
	ExtensionID string
	Name        string
}

// Validate reports whether every component of the key is set.
func (k Key) Validate() error {
	if !k.Scope.Valid() {
		return oops.Code(CodeInvalidKey).With("scope", k.Scope).Errorf("unknown memento scope %q", k.Scope)
	}
	if k.ExtensionID == "" {
		return oops.Code(CodeInvalidKey).Errorf("memento key has no extension id")
	}
	if k.Name == "" {
		return oops.Code(CodeInvalidKey).With("extension", k.ExtensionID).Errorf("memento key is empty")
	}
	return nil
}

// Partition identifies the set of keys one extension owns in one scope.
type Partition struct {
	Scope       Scope
	ExtensionID string
}

// Key returns the key called name inside the partition.
func (p Partition) Key(name string) Key {
	return Key{Scope: p.Scope, ExtensionID: p.ExtensionID, Name: name}
}

// Store is the persistence port behind the memento. Values are opaque
// serialized bytes; the memento owns encoding.
type Store interface {
	// Get returns the raw value and whether it exists.
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	// Set writes value, overwriting any previous value.
	Set(ctx context.Context, key Key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// Keys lists the key names in a partition in lexical order.
	Keys(ctx context.Context, p Partition) ([]string, error)
	// Clear removes every key in a partition.
	Clear(ctx context.Context, p Partition) error
	// Close releases the underlying resources.
	Close() error
}

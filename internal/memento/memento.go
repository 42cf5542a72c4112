// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/errutil"
)

// Memento is one extension's view of one scope. Values round-trip through
// JSON, so anything json.Marshal accepts can be stored.
type Memento struct {
	store     Store
	partition Partition
}

// New returns the memento for extensionID in scope.
func New(store Store, scope Scope, extensionID string) *Memento {
	return &Memento{
		store:     store,
		partition: Partition{Scope: scope, ExtensionID: extensionID},
	}
}

// Partition returns the partition the memento is bound to.
func (m *Memento) Partition() Partition {
	return m.partition
}

// Get returns the decoded value stored under key, or def when the key is
// missing, unreadable, or corrupt.
func (m *Memento) Get(ctx context.Context, key string, def any) any {
	var v any
	if !m.GetInto(ctx, key, &v) {
		return def
	}
	return v
}

// GetInto decodes the value stored under key into dst and reports whether it
// did. dst is left untouched on a miss.
func (m *Memento) GetInto(ctx context.Context, key string, dst any) bool {
	k := m.partition.Key(key)
	if err := k.Validate(); err != nil {
		return false
	}

	raw, ok, err := m.store.Get(ctx, k)
	if err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "memento read failed", err)
		RecordOperation(m.partition.Scope, "get", StatusError)
		return false
	}
	if !ok {
		RecordOperation(m.partition.Scope, "get", StatusMiss)
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		slog.WarnContext(ctx, "discarding corrupt memento value",
			"code", CodeCorrupt,
			"scope", m.partition.Scope,
			"extension", m.partition.ExtensionID,
			"key", key,
			"error", err)
		RecordOperation(m.partition.Scope, "get", StatusCorrupt)
		return false
	}
	RecordOperation(m.partition.Scope, "get", StatusHit)
	return true
}

// Update persists value under key, replacing any previous value. A nil value
// is stored as JSON null and reads back as nil; use Delete to remove a key.
func (m *Memento) Update(ctx context.Context, key string, value any) error {
	k := m.partition.Key(key)
	if err := k.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return oops.Code(CodeEncode).
			With("extension", k.ExtensionID).
			With("key", key).
			Wrapf(err, "encode memento value")
	}
	if err := m.store.Set(ctx, k, raw); err != nil {
		RecordOperation(m.partition.Scope, "update", StatusError)
		return oops.Code(CodeBackend).With("extension", k.ExtensionID).With("key", key).Wrap(err)
	}
	RecordOperation(m.partition.Scope, "update", StatusOK)
	return nil
}

// Delete removes key from the partition.
func (m *Memento) Delete(ctx context.Context, key string) error {
	k := m.partition.Key(key)
	if err := k.Validate(); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, k); err != nil {
		return oops.Code(CodeBackend).With("extension", k.ExtensionID).With("key", key).Wrap(err)
	}
	RecordOperation(m.partition.Scope, "delete", StatusOK)
	return nil
}

// Keys enumerates the keys in this partition only.
func (m *Memento) Keys(ctx context.Context) ([]string, error) {
	keys, err := m.store.Keys(ctx, m.partition)
	if err != nil {
		return nil, oops.Code(CodeBackend).With("extension", m.partition.ExtensionID).Wrap(err)
	}
	return keys, nil
}

// Clear removes every key in this partition.
func (m *Memento) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx, m.partition); err != nil {
		return oops.Code(CodeBackend).With("extension", m.partition.ExtensionID).Wrap(err)
	}
	RecordOperation(m.partition.Scope, "clear", StatusOK)
	return nil
}

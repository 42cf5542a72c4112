// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento

import (
	"context"
	"sort"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store that lives only as long as the process. It backs
// tests and the "memory" storage driver.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Partition]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Partition]map[string][]byte)}
}

func partitionOf(k Key) Partition {
	return Partition{Scope: k.Scope, ExtensionID: k.ExtensionID}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[partitionOf(key)][key.Name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := partitionOf(key)
	if s.data[p] == nil {
		s.data[p] = make(map[string][]byte)
	}
	s.data[p][key.Name] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[partitionOf(key)], key.Name)
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(_ context.Context, p Partition) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data[p]))
	for k := range s.data[p] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, p Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, p)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"

	"github.com/quayside/quayside/internal/memento"
)

// Storage is the key/value namespace. It is backed by the extension's global
// memento.
type Storage struct {
	binding
	state *memento.Memento
}

func (s *Storage) memento() (*memento.Memento, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	if s.state == nil {
		return nil, errUnavailable(s.extensionID(), "storage")
	}
	return s.state, nil
}

// Get returns the stored value for key, or def.
func (s *Storage) Get(ctx context.Context, key string, def any) any {
	m, err := s.memento()
	if err != nil {
		return def
	}
	return m.Get(ctx, key, def)
}

// Set stores value under key. A nil value is stored as null.
func (s *Storage) Set(ctx context.Context, key string, value any) error {
	m, err := s.memento()
	if err != nil {
		return err
	}
	return m.Update(ctx, key, value)
}

// Delete removes key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	m, err := s.memento()
	if err != nil {
		return err
	}
	return m.Delete(ctx, key)
}

// Keys lists stored keys.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	m, err := s.memento()
	if err != nil {
		return nil, err
	}
	return m.Keys(ctx)
}

// Clear removes every key.
func (s *Storage) Clear(ctx context.Context) error {
	m, err := s.memento()
	if err != nil {
		return err
	}
	return m.Clear(ctx)
}

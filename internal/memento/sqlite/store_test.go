// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/internal/memento/sqlite"
	"github.com/quayside/quayside/internal/memento/storetest"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "memento.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) memento.Store {
		return openTemp(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memento.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	m := memento.New(s, memento.ScopeWorkspace, "e1")
	require.NoError(t, m.Update(ctx, "lastRun", map[string]any{"ok": true}))
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()

	m = memento.New(s, memento.ScopeWorkspace, "e1")
	assert.Equal(t, map[string]any{"ok": true}, m.Get(ctx, "lastRun", nil))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := sqlite.Open(filepath.Join(t.TempDir(), "missing", "dir", "memento.db"))
	assert.Error(t, err)
}

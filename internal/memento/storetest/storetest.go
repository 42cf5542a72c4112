// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package storetest holds the behavioral suite every memento.Store
// implementation must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/memento"
)

// Run exercises store against the Store contract. newStore must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) memento.Store) {
	t.Helper()
	ctx := context.Background()
	a := memento.Partition{Scope: memento.ScopeGlobal, ExtensionID: "ext-a"}
	b := memento.Partition{Scope: memento.ScopeGlobal, ExtensionID: "ext-b"}
	aw := memento.Partition{Scope: memento.ScopeWorkspace, ExtensionID: "ext-a"}

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Get(ctx, a.Key("k"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, a.Key("k"), []byte(`{"n":1}`)))
		got, ok, err := s.Get(ctx, a.Key("k"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(`{"n":1}`), got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, a.Key("k"), []byte(`1`)))
		require.NoError(t, s.Set(ctx, a.Key("k"), []byte(`2`)))
		got, _, err := s.Get(ctx, a.Key("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte(`2`), got)
	})

	t.Run("partitions are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, a.Key("k"), []byte(`1`)))

		for _, p := range []memento.Partition{b, aw} {
			_, ok, err := s.Get(ctx, p.Key("k"))
			require.NoError(t, err)
			assert.False(t, ok, "partition %+v must not see ext-a/global", p)

			keys, err := s.Keys(ctx, p)
			require.NoError(t, err)
			assert.Empty(t, keys)
		}
	})

	t.Run("keys sorted", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, s.Set(ctx, a.Key(k), []byte(`true`)))
		}
		require.NoError(t, s.Set(ctx, b.Key("other"), []byte(`true`)))

		keys, err := s.Keys(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, a.Key("k"), []byte(`1`)))
		require.NoError(t, s.Delete(ctx, a.Key("k")))
		require.NoError(t, s.Delete(ctx, a.Key("never-set")))

		_, ok, err := s.Get(ctx, a.Key("k"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear only touches one partition", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, a.Key("k1"), []byte(`1`)))
		require.NoError(t, s.Set(ctx, a.Key("k2"), []byte(`2`)))
		require.NoError(t, s.Set(ctx, b.Key("k1"), []byte(`3`)))
		require.NoError(t, s.Set(ctx, aw.Key("k1"), []byte(`4`)))

		require.NoError(t, s.Clear(ctx, a))

		keys, err := s.Keys(ctx, a)
		require.NoError(t, err)
		assert.Empty(t, keys)

		got, ok, err := s.Get(ctx, b.Key("k1"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(`3`), got)

		_, ok, err = s.Get(ctx, aw.Key("k1"))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

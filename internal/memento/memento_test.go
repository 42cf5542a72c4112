// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/memento"
	"github.com/quayside/quayside/pkg/errutil"
)

func TestMemento_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")

	values := []any{
		"text",
		float64(42),
		true,
		[]any{"a", float64(1), nil},
		map[string]any{"nested": map[string]any{"list": []any{float64(1), float64(2)}}},
	}
	for _, v := range values {
		require.NoError(t, m.Update(ctx, "k", v))
		assert.Equal(t, v, m.Get(ctx, "k", nil))
	}
}

func TestMemento_DefaultForUntouchedKey(t *testing.T) {
	m := memento.New(memento.NewMemoryStore(), memento.ScopeWorkspace, "e1")
	assert.Equal(t, "fallback", m.Get(context.Background(), "missing", "fallback"))
}

func TestMemento_ExtensionsDoNotShareKeys(t *testing.T) {
	ctx := context.Background()
	store := memento.NewMemoryStore()
	extA := memento.New(store, memento.ScopeGlobal, "ext-a")
	extB := memento.New(store, memento.ScopeGlobal, "ext-b")

	require.NoError(t, extA.Update(ctx, "k", 1))

	assert.Equal(t, "default", extB.Get(ctx, "k", "default"))
	keys, err := extB.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemento_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := memento.NewMemoryStore()
	global := memento.New(store, memento.ScopeGlobal, "e1")
	workspace := memento.New(store, memento.ScopeWorkspace, "e1")

	require.NoError(t, global.Update(ctx, "k", "g"))
	assert.Nil(t, workspace.Get(ctx, "k", nil))
}

func TestMemento_CorruptValueDegradesToDefault(t *testing.T) {
	ctx := context.Background()
	store := memento.NewMemoryStore()
	m := memento.New(store, memento.ScopeGlobal, "e1")

	require.NoError(t, store.Set(ctx, m.Partition().Key("k"), []byte("{not json")))

	assert.Equal(t, 7, m.Get(ctx, "k", 7))

	var dst struct{ N int }
	assert.False(t, m.GetInto(ctx, "k", &dst))
}

func TestMemento_GetIntoTyped(t *testing.T) {
	ctx := context.Background()
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")

	type prefs struct {
		Theme string `json:"theme"`
		Size  int    `json:"size"`
	}
	require.NoError(t, m.Update(ctx, "prefs", prefs{Theme: "dark", Size: 12}))

	var got prefs
	require.True(t, m.GetInto(ctx, "prefs", &got))
	assert.Equal(t, prefs{Theme: "dark", Size: 12}, got)
}

func TestMemento_UpdateNilStoresNull(t *testing.T) {
	ctx := context.Background()
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")

	require.NoError(t, m.Update(ctx, "k", "v"))
	require.NoError(t, m.Update(ctx, "k", nil))

	assert.Nil(t, m.Get(ctx, "k", "fallback"), "a stored null is not a miss")
	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.Equal(t, "fallback", m.Get(ctx, "k", "fallback"))
}

func TestMemento_ClearAndKeys(t *testing.T) {
	ctx := context.Background()
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")
	require.NoError(t, m.Update(ctx, "b", 1))
	require.NoError(t, m.Update(ctx, "a", 2))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, m.Clear(ctx))
	keys, err = m.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemento_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")

	errutil.AssertErrorCode(t, m.Update(ctx, "", 1), memento.CodeInvalidKey)
	assert.Equal(t, "d", m.Get(ctx, "", "d"))

	bad := memento.New(memento.NewMemoryStore(), memento.Scope("session"), "e1")
	errutil.AssertErrorCode(t, bad.Update(ctx, "k", 1), memento.CodeInvalidKey)
}

func TestMemento_UnencodableValue(t *testing.T) {
	m := memento.New(memento.NewMemoryStore(), memento.ScopeGlobal, "e1")
	err := m.Update(context.Background(), "k", func() {})
	errutil.AssertErrorCode(t, err, memento.CodeEncode)
}

type failingStore struct{ memento.MemoryStore }

func (*failingStore) Get(context.Context, memento.Key) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (*failingStore) Set(context.Context, memento.Key, []byte) error {
	return errors.New("disk on fire")
}

func TestMemento_BackendErrors(t *testing.T) {
	ctx := context.Background()
	m := memento.New(&failingStore{}, memento.ScopeGlobal, "e1")

	assert.Equal(t, "d", m.Get(ctx, "k", "d"))
	errutil.AssertErrorCode(t, m.Update(ctx, "k", 1), memento.CodeBackend)
}

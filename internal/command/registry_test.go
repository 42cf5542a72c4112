// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/pkg/errutil"
)

func constHandler(v any) command.Handler {
	return func(_ context.Context, _ ...any) (any, error) {
		return v, nil
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := command.NewRegistry()

	_, err := reg.Register("e1.ping", constHandler("pong"), "e1")
	require.NoError(t, err)

	h, err := reg.Resolve("e1.ping")
	require.NoError(t, err)
	got, err := h(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	entry, ok := reg.Lookup("e1.ping")
	require.True(t, ok)
	assert.Equal(t, "e1", entry.Owner)
}

func TestRegistry_ResolveNotFound(t *testing.T) {
	reg := command.NewRegistry()
	_, _ = reg.Register("a.b", constHandler(1), "e1")

	for _, id := range []string{"a", "a.b.c", "A.B", ""} {
		_, err := reg.Resolve(id)
		errutil.AssertErrorCode(t, err, command.CodeNotFound)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	tests := []struct {
		name        string
		secondOwner string
	}{
		{name: "same owner", secondOwner: "e1"},
		{name: "different owner", secondOwner: "e2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := command.NewRegistry()
			_, err := reg.Register("a.b", constHandler("first"), "e1")
			require.NoError(t, err)

			dispose, err := reg.Register("a.b", constHandler("second"), tt.secondOwner)
			errutil.AssertErrorCode(t, err, command.CodeConflict)
			assert.Nil(t, dispose)

			h, err := reg.Resolve("a.b")
			require.NoError(t, err)
			got, _ := h(context.Background())
			assert.Equal(t, "first", got)
		})
	}
}

func TestRegistry_DisposeIsIdempotent(t *testing.T) {
	reg := command.NewRegistry()
	dispose, err := reg.Register("a.b", constHandler(1), "e1")
	require.NoError(t, err)

	dispose()
	dispose()

	_, ok := reg.Lookup("a.b")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_StaleDisposerKeepsNewerRegistration(t *testing.T) {
	reg := command.NewRegistry()
	first, err := reg.Register("a.b", constHandler("first"), "e1")
	require.NoError(t, err)
	first()

	_, err = reg.Register("a.b", constHandler("second"), "e2")
	require.NoError(t, err)

	first()

	entry, ok := reg.Lookup("a.b")
	require.True(t, ok)
	assert.Equal(t, "e2", entry.Owner)
}

func TestRegistry_InvalidRegistrations(t *testing.T) {
	reg := command.NewRegistry()

	_, err := reg.Register("", constHandler(1), "e1")
	errutil.AssertErrorCode(t, err, command.CodeInvalidID)

	_, err = reg.Register("has space", constHandler(1), "e1")
	errutil.AssertErrorCode(t, err, command.CodeInvalidID)

	_, err = reg.Register("ok.id", nil, "e1")
	errutil.AssertErrorCode(t, err, command.CodeInvalidID)
}

func TestRegistry_ListAllAndOwned(t *testing.T) {
	reg := command.NewRegistry()
	for _, r := range []struct{ id, owner string }{
		{"b.two", "e2"},
		{"a.one", "e1"},
		{"c.three", "e1"},
	} {
		_, err := reg.Register(r.id, constHandler(nil), r.owner)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a.one", "b.two", "c.three"}, reg.ListAll())
	assert.Equal(t, []string{"a.one", "c.three"}, reg.Owned("e1"))
	assert.Empty(t, reg.Owned("e3"))
}

func TestRegistry_RemoveOwner(t *testing.T) {
	reg := command.NewRegistry()
	_, _ = reg.Register("a.one", constHandler(nil), "e1")
	_, _ = reg.Register("a.two", constHandler(nil), "e1")
	_, _ = reg.Register("b.one", constHandler(nil), "e2")

	assert.Equal(t, 2, reg.RemoveOwner("e1"))
	assert.Equal(t, 0, reg.RemoveOwner("e1"))
	assert.Equal(t, []string{"b.one"}, reg.ListAll())
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	reg := command.NewRegistry()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Register("race.cmd", constHandler(i), fmt.Sprintf("e%d", i))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, reg.Len())
}

func TestInvoke_RecoversPanic(t *testing.T) {
	h := func(_ context.Context, _ ...any) (any, error) {
		panic("boom")
	}
	_, err := command.Invoke(context.Background(), "x.panic", h)
	errutil.AssertErrorCode(t, err, command.CodeHandlerFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestInvoke_PassesArgsAndErrors(t *testing.T) {
	want := errors.New("nope")
	h := func(_ context.Context, args ...any) (any, error) {
		if len(args) == 2 {
			return args[0].(int) + args[1].(int), nil
		}
		return nil, want
	}

	got, err := command.Invoke(context.Background(), "x.add", h, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	_, err = command.Invoke(context.Background(), "x.add", h)
	assert.ErrorIs(t, err, want)
}

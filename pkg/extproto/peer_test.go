// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quayside/quayside/pkg/errutil"
	"github.com/quayside/quayside/pkg/extproto"
)

func pair(t *testing.T, left, right extproto.Handler) (*extproto.Peer, *extproto.Peer) {
	t.Helper()
	a, b := extproto.Pipe()
	pa, pb := extproto.NewPeer(a, left), extproto.NewPeer(b, right)
	pa.Start()
	pb.Start()
	t.Cleanup(func() {
		_ = pa.Close()
		_ = pb.Close()
	})
	return pa, pb
}

func noRequests(context.Context, *extproto.Envelope) (any, error) {
	return nil, errors.New("unexpected request")
}

func TestPeer_RequestReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	host, _ := pair(t, noRequests, func(_ context.Context, env *extproto.Envelope) (any, error) {
		switch env.Type {
		case extproto.TypeExecute:
			return strings.ToUpper(env.Args[0].(string)), nil
		case extproto.TypeLoad:
			return extproto.Exports{"hello.secret"}, nil
		}
		return nil, nil
	})

	reply, err := host.Request(context.Background(), &extproto.Envelope{
		Type: extproto.TypeExecute, Method: "hello.shout", Args: []any{"hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, extproto.TypeResult, reply.Type)
	assert.Equal(t, "HI", reply.Value)

	reply, err = host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeLoad})
	require.NoError(t, err)
	assert.Equal(t, extproto.TypeLoaded, reply.Type)
	assert.Equal(t, []string{"hello.secret"}, reply.Exports)

	require.NoError(t, host.Close())
}

func TestPeer_RemoteErrorKeepsCode(t *testing.T) {
	host, _ := pair(t, noRequests, func(context.Context, *extproto.Envelope) (any, error) {
		return nil, oops.Code("CAPABILITY_DENIED").Errorf("extension hello lacks capability notifications")
	})

	_, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeCall, Method: "window.showMessage"})
	var remote *extproto.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "CAPABILITY_DENIED", remote.Code)
	assert.Contains(t, remote.Message, "lacks capability")
}

func TestPeer_HandlerPanicBecomesError(t *testing.T) {
	host, _ := pair(t, noRequests, func(context.Context, *extproto.Envelope) (any, error) {
		panic("boom")
	})
	_, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeExecute})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPeer_NestedRequests(t *testing.T) {
	var ext *extproto.Peer
	host, ext := pair(t,
		func(_ context.Context, env *extproto.Envelope) (any, error) {
			return "host:" + env.Method, nil
		},
		func(ctx context.Context, env *extproto.Envelope) (any, error) {
			reply, err := ext.Request(ctx, &extproto.Envelope{Type: extproto.TypeCall, Method: "storage.get"})
			if err != nil {
				return nil, err
			}
			return reply.Value, nil
		})

	reply, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeExecute})
	require.NoError(t, err)
	assert.Equal(t, "host:storage.get", reply.Value)
}

func TestPeer_EventsInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []any
	host, _ := pair(t, noRequests, func(_ context.Context, env *extproto.Envelope) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, env.Value)
		return nil, nil
	})

	for i := range 5 {
		require.NoError(t, host.Notify("tick", i))
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []any{0.0, 1.0, 2.0, 3.0, 4.0}, got)
}

func TestPeer_CloseFailsPendingRequests(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	host, ext := pair(t, noRequests, func(ctx context.Context, _ *extproto.Envelope) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})

	errc := make(chan error, 1)
	go func() {
		_, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeExecute})
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ext.Close())

	select {
	case err := <-errc:
		errutil.AssertErrorCode(t, err, extproto.CodeChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("pending request did not fail")
	}
	close(release)
	<-host.Done()

	_, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeExecute})
	errutil.AssertErrorCode(t, err, extproto.CodeChannelClosed)
	assert.Error(t, host.Notify("late", nil))
}

func TestPeer_RequestHonoursContext(t *testing.T) {
	host, _ := pair(t, noRequests, func(ctx context.Context, _ *extproto.Envelope) (any, error) {
		<-ctx.Done()
		return nil, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := host.Request(ctx, &extproto.Envelope{Type: extproto.TypeExecute})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPeer_RejectsNonRequest(t *testing.T) {
	host, _ := pair(t, noRequests, noRequests)
	_, err := host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeEvent})
	require.Error(t, err)
}

func TestPeer_CancelReachesHandler(t *testing.T) {
	cancelled := make(chan error, 1)
	host, _ := pair(t, noRequests, func(ctx context.Context, _ *extproto.Envelope) (any, error) {
		<-ctx.Done()
		cancelled <- ctx.Err()
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := host.Request(ctx, &extproto.Envelope{Type: extproto.TypeExecute, Method: "slow.run"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("handler context was not cancelled")
	}
}

func TestPeer_CloseDoesNotWaitForStuckHandler(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	host, ext := pair(t, noRequests, func(context.Context, *extproto.Envelope) (any, error) {
		close(started)
		<-release
		return nil, nil
	})

	go func() { _, _ = host.Request(context.Background(), &extproto.Envelope{Type: extproto.TypeExecute}) }()
	<-started

	closed := make(chan struct{})
	go func() {
		_ = ext.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a handler")
	}

	close(release)
	select {
	case <-ext.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after the handler returned")
	}
}

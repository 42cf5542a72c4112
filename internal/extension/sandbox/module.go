// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package sandbox

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/logging"
	"github.com/quayside/quayside/pkg/extproto"
)

// module is the host-side proxy for one extension process.
type module struct {
	id     string
	api    *api.API
	client Client
	peer   *extproto.Peer
	calls  *dispatcher

	mu    sync.Mutex
	local map[string]command.Handler
	once  sync.Once
}

var _ extension.Module = (*module)(nil)

// Activate sends "load" and waits for "loaded". The child activates the
// extension before it answers, so Capability API calls made during its
// activate arrive here first.
func (m *module) Activate(ctx context.Context, ec *extension.Context) error {
	manifest, err := extproto.Plain(ec.Manifest)
	if err != nil {
		return isolationErr(m.id, err, "encode manifest")
	}
	manifestMap, _ := manifest.(map[string]any)

	reply, err := m.peer.Request(ctx, &extproto.Envelope{
		Type:          extproto.TypeLoad,
		ExtensionPath: ec.ExtensionPath,
		Manifest:      manifestMap,
		Context: map[string]any{
			"extensionId":   ec.ExtensionID,
			"extensionPath": ec.ExtensionPath,
			"version":       ec.Manifest.Version,
		},
	})
	if err != nil {
		return m.failure(ctx, err, "load")
	}

	local := make(map[string]command.Handler, len(reply.Exports))
	for _, id := range reply.Exports {
		local[id] = m.remote(id)
	}
	m.mu.Lock()
	m.local = local
	m.mu.Unlock()
	return nil
}

// Deactivate sends "deactivate" and waits for "deactivated".
func (m *module) Deactivate(ctx context.Context) error {
	if _, err := m.peer.Request(ctx, &extproto.Envelope{Type: extproto.TypeDeactivate}); err != nil {
		return m.failure(ctx, err, "deactivate")
	}
	return nil
}

func (m *module) Commands() map[string]command.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

// Close kills the process and then ends the channel, regardless of
// in-flight work. Host-side handlers still running see their context
// cancelled and are not waited for.
func (m *module) Close() error {
	m.once.Do(func() {
		m.client.Kill()
		_ = m.peer.Close()
	})
	return nil
}

// remote forwards a command to the child.
func (m *module) remote(id string) command.Handler {
	return func(ctx context.Context, args ...any) (any, error) {
		reply, err := m.peer.Request(ctx, &extproto.Envelope{
			Type:   extproto.TypeExecute,
			Method: id,
			Args:   args,
		})
		if err != nil {
			return nil, m.failure(ctx, err, "execute "+id)
		}
		return reply.Value, nil
	}
}

// failure maps channel errors. Errors raised by the extension keep their
// code; a dead channel is ISOLATION_FAILED; caller cancellation passes
// through.
func (m *module) failure(ctx context.Context, err error, what string) error {
	var remote *extproto.RemoteError
	switch {
	case errors.As(err, &remote):
		b := oops.In("sandbox").With("extension", m.id)
		if remote.Code != "" {
			b = b.Code(remote.Code)
		}
		return b.Errorf("%s", remote.Message)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return isolationErr(m.id, err, what)
}

// serve answers "call" envelopes from the child.
func (m *module) serve(ctx context.Context, env *extproto.Envelope) (any, error) {
	if env.Type != extproto.TypeCall {
		return nil, oops.In("sandbox").With("extension", m.id).With("type", env.Type).
			Errorf("extension sent unexpected %s envelope", env.Type)
	}
	return m.calls.call(logging.WithExtension(ctx, m.id), env.Method, env.Args)
}

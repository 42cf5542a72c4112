// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extsdk

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/extproto"
)

// Session serves one extension over one channel. Serve creates it; tests
// drive it over extproto.Pipe.
type Session struct {
	ext  Extension
	peer *extproto.Peer
	host *Host

	mu     sync.Mutex
	loaded bool
}

// NewSession binds ext to stream.
func NewSession(ext Extension, stream extproto.Stream) *Session {
	s := &Session{ext: ext}
	s.peer = extproto.NewPeer(stream, s.handle)
	s.host = newHost(s.peer)
	return s
}

// Run serves until the host closes the channel or ctx ends.
func (s *Session) Run(ctx context.Context) error {
	s.peer.Start()
	select {
	case <-s.peer.Done():
	case <-ctx.Done():
		_ = s.peer.Close()
	}
	return s.peer.Err()
}

func (s *Session) handle(ctx context.Context, env *extproto.Envelope) (any, error) {
	switch env.Type {
	case extproto.TypeLoad:
		return s.load(ctx, env)
	case extproto.TypeExecute:
		return s.host.run(ctx, env.Method, env.Args)
	case extproto.TypeDeactivate:
		if d, ok := s.ext.(Deactivator); ok {
			return nil, d.Deactivate(ctx)
		}
		return nil, nil
	case extproto.TypeEvent:
		s.host.dispatch(env.Method, env.Value)
		return nil, nil
	}
	return nil, oops.In("extsdk").With("type", env.Type).Errorf("unexpected %s envelope", env.Type)
}

func (s *Session) load(ctx context.Context, env *extproto.Envelope) (any, error) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil, oops.In("extsdk").Errorf("extension already loaded")
	}
	s.loaded = true
	s.mu.Unlock()

	s.host.setIdentity(env)
	if err := s.ext.Activate(ctx, s.host); err != nil {
		return nil, err
	}

	local := s.host.localIDs()
	sort.Strings(local)
	return extproto.Exports(local), nil
}

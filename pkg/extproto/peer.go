// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
)

// CodeChannelClosed is the code of requests that fail because the channel
// went away.
const CodeChannelClosed = "CHANNEL_CLOSED"

// Stream carries envelopes in both directions.
type Stream interface {
	Send(env *Envelope) error
	Recv() (*Envelope, error)
	// Close ends the stream; a blocked Recv returns.
	Close() error
}

// Handler answers a request envelope with a reply value. For "event"
// envelopes the returned value is ignored.
type Handler func(ctx context.Context, env *Envelope) (any, error)

// Peer multiplexes requests and replies over one stream. Replies are
// matched to requests by ID. Incoming requests are started in arrival
// order, each on its own goroutine so a handler may issue requests of its
// own, with a context that ends when the requester cancels or the peer
// stops. Events are handled one at a time in arrival order.
type Peer struct {
	stream Stream
	handle Handler

	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
	next   atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]chan *Envelope
	inflight map[uint64]context.CancelFunc

	events   chan *Envelope
	handlers sync.WaitGroup
	stopped  chan struct{}
	done     chan struct{}
	err      error
	once     sync.Once
}

// NewPeer wraps stream. Call Start to begin reading.
func NewPeer(stream Stream, handle Handler) *Peer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Peer{
		stream:   stream,
		handle:   handle,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[uint64]chan *Envelope),
		inflight: make(map[uint64]context.CancelFunc),
		events:   make(chan *Envelope, 64),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the read and event loops.
func (p *Peer) Start() {
	p.handlers.Add(1)
	go p.eventLoop()
	go p.readLoop()
}

// Done is closed once the peer has stopped and every handler returned.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Err is why the peer stopped. It is nil after Close and io.EOF when the
// other side ended the stream.
func (p *Peer) Err() error {
	<-p.done
	return p.err
}

// Close stops the peer and ends the stream. Pending requests fail and
// running handlers see their context cancelled. Close returns once the
// read loop has exited; it does not wait for handlers, so a handler that
// ignores its context cannot hold it up. Use Done for that.
func (p *Peer) Close() error {
	p.stop(nil)
	<-p.stopped
	return nil
}

func (p *Peer) stop(err error) {
	p.once.Do(func() {
		p.err = err
		p.cancel()
		if cerr := p.stream.Close(); cerr != nil {
			slog.Debug("closing isolation stream", "error", cerr)
		}
	})
}

func (p *Peer) readLoop() {
	defer func() {
		p.handlers.Wait()
		close(p.done)
	}()
	defer close(p.events)
	defer close(p.stopped)

	for {
		env, err := p.stream.Recv()
		if err != nil {
			if p.ctx.Err() != nil {
				err = nil
			}
			p.stop(err)
			return
		}
		switch {
		case env.Type.IsReply():
			p.deliver(env)
		case env.Type == TypeEvent:
			select {
			case p.events <- env:
			default:
				slog.Warn("isolation event queue full, dropping event", "event", env.Method)
			}
		case env.Type == TypeCancel:
			p.mu.Lock()
			cancel := p.inflight[env.ID]
			p.mu.Unlock()
			if cancel != nil {
				cancel()
			}
		case env.Type.IsRequest():
			ctx, cancel := context.WithCancel(p.ctx)
			p.mu.Lock()
			p.inflight[env.ID] = cancel
			p.mu.Unlock()
			p.handlers.Add(1)
			go p.serve(ctx, env)
		default:
			slog.Warn("ignoring envelope of unknown type", "type", env.Type)
		}
	}
}

func (p *Peer) eventLoop() {
	defer p.handlers.Done()
	for env := range p.events {
		if _, err := p.safeHandle(p.ctx, env); err != nil {
			slog.Warn("isolation event handler failed", "event", env.Method, "error", err)
		}
	}
}

func (p *Peer) deliver(env *Envelope) {
	p.mu.Lock()
	ch, ok := p.pending[env.ID]
	delete(p.pending, env.ID)
	p.mu.Unlock()
	if !ok {
		slog.Debug("reply for unknown request", "id", env.ID, "type", env.Type)
		return
	}
	ch <- env
}

func (p *Peer) serve(ctx context.Context, req *Envelope) {
	defer p.handlers.Done()
	defer func() {
		p.mu.Lock()
		cancel := p.inflight[req.ID]
		delete(p.inflight, req.ID)
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}()

	reply := &Envelope{ID: req.ID}
	value, err := p.safeHandle(ctx, req)
	if err != nil {
		reply.Type = TypeError
		reply.Error = ErrorFrom(err)
	} else {
		reply.Type, _ = ReplyType(req.Type)
		if exports, ok := value.(Exports); ok {
			reply.Exports = exports
		} else {
			reply.Value = value
		}
	}
	if err := p.send(reply); err != nil && p.ctx.Err() == nil {
		slog.Warn("sending isolation reply", "type", reply.Type, "error", err)
	}
}

func (p *Peer) safeHandle(ctx context.Context, req *Envelope) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("extproto").With("type", req.Type).With("method", req.Method).Errorf("handler panicked: %v", r)
		}
	}()
	return p.handle(ctx, req)
}

// Exports is returned by a "load" handler to list private command ids in
// the "loaded" reply.
type Exports []string

func (p *Peer) send(env *Envelope) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return p.stream.Send(env)
}

func (p *Peer) closedErr() error {
	b := oops.Code(CodeChannelClosed).In("extproto")
	if p.err != nil && !errors.Is(p.err, io.EOF) {
		return b.Wrapf(p.err, "isolation channel closed")
	}
	return b.Errorf("isolation channel closed")
}

// Request sends req and waits for its reply. An "error" reply is returned
// as a *RemoteError.
func (p *Peer) Request(ctx context.Context, req *Envelope) (*Envelope, error) {
	if !req.Type.IsRequest() {
		return nil, oops.In("extproto").With("type", req.Type).Errorf("%s is not a request type", req.Type)
	}
	req.ID = p.next.Add(1)
	ch := make(chan *Envelope, 1)

	p.mu.Lock()
	p.pending[req.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	select {
	case <-p.ctx.Done():
		return nil, p.closedErr()
	default:
	}
	if err := p.send(req); err != nil {
		return nil, oops.Code(CodeChannelClosed).In("extproto").With("type", req.Type).Wrapf(err, "send %s", req.Type)
	}

	select {
	case reply := <-ch:
		if reply.Type == TypeError {
			re := &RemoteError{Message: "unknown error"}
			if reply.Error != nil {
				re.Code, re.Message = reply.Error.Code, reply.Error.Message
			}
			return nil, re
		}
		return reply, nil
	case <-ctx.Done():
		if p.ctx.Err() == nil {
			if err := p.send(&Envelope{Type: TypeCancel, ID: req.ID}); err != nil {
				slog.Debug("sending cancel", "id", req.ID, "error", err)
			}
		}
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, p.closedErr()
	}
}

// Notify sends a one-way event.
func (p *Peer) Notify(name string, payload any) error {
	if p.ctx.Err() != nil {
		return p.closedErr()
	}
	return p.send(&Envelope{Type: TypeEvent, Method: name, Value: payload})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import (
	"io"
	"sync"
)

// Pipe returns two connected in-memory streams. Every envelope goes
// through the wire codec, so values that could not cross a real channel
// fail here too. Closing either end closes both.
func Pipe() (Stream, Stream) {
	ab := make(chan *Envelope, 16)
	ba := make(chan *Envelope, 16)
	shared := &pipeState{closed: make(chan struct{})}
	return &pipeEnd{in: ba, out: ab, state: shared}, &pipeEnd{in: ab, out: ba, state: shared}
}

type pipeState struct {
	once   sync.Once
	closed chan struct{}
}

type pipeEnd struct {
	in    <-chan *Envelope
	out   chan<- *Envelope
	state *pipeState
}

func (p *pipeEnd) Send(env *Envelope) error {
	msg, err := Encode(env)
	if err != nil {
		return err
	}
	wire, err := DecodeEnvelope(msg)
	if err != nil {
		return err
	}
	select {
	case <-p.state.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- wire:
		return nil
	case <-p.state.closed:
		return io.ErrClosedPipe
	}
}

func (p *pipeEnd) Recv() (*Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.state.closed:
		return nil, io.EOF
	}
}

func (p *pipeEnd) Close() error {
	p.state.once.Do(func() { close(p.state.closed) })
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package lua

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/logging"
)

// queueSize bounds pending calls into one state. Event deliveries beyond
// it are dropped.
const queueSize = 64

// ownerKey carries the states whose goroutines are parked waiting on the
// current call. A call into any of them runs inline instead of queueing
// behind itself.
type ownerKey struct{}

func owners(ctx context.Context) []*module {
	o, _ := ctx.Value(ownerKey{}).([]*module)
	return o
}

type job struct {
	ctx  context.Context
	fn   func(L *lua.LState) error
	done chan error
}

// module is one script extension. All access to L happens on the run
// goroutine or inline from a call already running there.
type module struct {
	id string
	L  *lua.LState

	jobs   chan job
	life   context.Context
	stop   context.CancelFunc
	exited chan struct{}

	mu    sync.Mutex
	local map[string]command.Handler
}

var _ extension.Module = (*module)(nil)

func newModule(id string, L *lua.LState) *module {
	life, stop := context.WithCancel(context.Background())
	m := &module{
		id:     id,
		L:      L,
		jobs:   make(chan job, queueSize),
		life:   life,
		stop:   stop,
		exited: make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *module) run() {
	defer close(m.exited)
	defer m.L.Close()
	for {
		select {
		case <-m.life.Done():
			return
		case j := <-m.jobs:
			err := m.exec(j)
			if j.done != nil {
				j.done <- err
			}
		}
	}
}

func (m *module) exec(j job) (err error) {
	chain := append(slices.Clone(owners(j.ctx)), m)
	ctx, cancel := context.WithCancel(context.WithValue(j.ctx, ownerKey{}, chain))
	defer cancel()
	unhook := context.AfterFunc(m.life, cancel)
	defer unhook()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua state panicked: %v", p)
		}
	}()

	m.L.SetContext(ctx)
	defer m.L.RemoveContext()
	return j.fn(m.L)
}

func (m *module) closedErr() error {
	return oops.Code(extension.CodeIsolationFailed).
		In("lua").
		With("extension", m.id).
		Errorf("lua state for %s is closed", m.id)
}

// do runs fn on the state and waits for it. Calls made from a function
// already running on this state execute inline.
func (m *module) do(ctx context.Context, fn func(L *lua.LState) error) error {
	if slices.Contains(owners(ctx), m) {
		return fn(m.L)
	}
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case m.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.life.Done():
		return m.closedErr()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.life.Done():
		return m.closedErr()
	}
}

// post queues fn without waiting. Used for event delivery, which the bus
// performs synchronously on the emitter's goroutine.
func (m *module) post(fn func(L *lua.LState) error) {
	ctx := logging.WithExtension(context.Background(), m.id)
	j := job{ctx: ctx, fn: func(L *lua.LState) error {
		if err := fn(L); err != nil {
			slog.WarnContext(ctx, "lua event handler failed", "extension", m.id, "error", err)
		}
		return nil
	}}
	select {
	case m.jobs <- j:
	case <-m.life.Done():
	default:
		slog.Warn("lua event queue full, dropping event", "extension", m.id)
	}
}

// Activate runs the script's activate(context) if it defines one, then
// collects its local_commands table.
func (m *module) Activate(ctx context.Context, ec *extension.Context) error {
	return m.do(ctx, func(L *lua.LState) error {
		L.SetGlobal("host", newHostTable(L, m, ec))

		if fn, ok := L.GetGlobal("activate").(*lua.LFunction); ok {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, contextTable(L, ec)); err != nil {
				return oops.In("lua").With("extension", m.id).Wrapf(err, "activate")
			}
		}

		local := make(map[string]command.Handler)
		if t, ok := L.GetGlobal("local_commands").(*lua.LTable); ok {
			for _, id := range sortedKeys(t) {
				if fn, ok := t.RawGetString(id).(*lua.LFunction); ok {
					local[id] = m.handler(id, fn)
				}
			}
		}
		m.mu.Lock()
		m.local = local
		m.mu.Unlock()
		return nil
	})
}

// Deactivate runs the script's deactivate() if it defines one.
func (m *module) Deactivate(ctx context.Context) error {
	return m.do(ctx, func(L *lua.LState) error {
		fn, ok := L.GetGlobal("deactivate").(*lua.LFunction)
		if !ok {
			return nil
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			return oops.In("lua").With("extension", m.id).Wrapf(err, "deactivate")
		}
		return nil
	})
}

func (m *module) Commands() map[string]command.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

// Close stops the run goroutine, aborting any script that is executing.
// It does not wait for the state to be released.
func (m *module) Close() error {
	m.stop()
	return nil
}

// handler adapts a Lua function to a command handler. The function's
// first return value is the command result; a raised error fails the call.
func (m *module) handler(id string, fn *lua.LFunction) command.Handler {
	return func(ctx context.Context, args ...any) (any, error) {
		var result any
		err := m.do(ctx, func(L *lua.LState) error {
			params := make([]lua.LValue, len(args))
			for i, a := range args {
				params[i] = toLua(L, a)
			}
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, params...); err != nil {
				return err
			}
			result = fromLua(L.Get(-1))
			L.Pop(1)
			return nil
		})
		if err != nil {
			return nil, oops.In("lua").With("extension", m.id).With("command", id).Wrapf(err, "run %s", id)
		}
		return result, nil
	}
}

func contextTable(L *lua.LState, ec *extension.Context) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(ec.ExtensionID))
	t.RawSetString("path", lua.LString(ec.ExtensionPath))
	if ec.Manifest != nil {
		t.RawSetString("version", lua.LString(ec.Manifest.Version))
		t.RawSetString("name", lua.LString(ec.Manifest.Name))
	}
	return t
}

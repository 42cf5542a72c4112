// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"strings"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/bus"
)

// Events is the event namespace. Events an extension emits are published
// under its own prefix so extensions cannot impersonate each other or the
// runtime.
type Events struct {
	binding
}

// Emit publishes payload under plugin.<extension>.<name> and returns the
// number of subscribers reached. Names are a single segment and may not be
// one of the runtime's lifecycle events.
func (e *Events) Emit(name string, payload any) (int, error) {
	if err := e.live(); err != nil {
		return 0, err
	}
	if name == "" || strings.Contains(name, ".") {
		return 0, errInvalid(e.extensionID(), "events.emit", "event name %q is invalid", name)
	}
	if bus.IsLifecycleEvent(name) {
		return 0, oops.Code(CodeReservedEvent).
			With("extension", e.extensionID()).
			With("event", name).
			Errorf("event %s is reserved for the runtime", name)
	}
	if e.deps.Bus == nil {
		return 0, nil
	}
	return e.deps.Bus.Emit(bus.PluginTopic(e.extensionID(), name), payload), nil
}

// On subscribes to one of this extension's own events.
func (e *Events) On(name string, handler func(payload any)) (Disposable, error) {
	return e.Subscribe(e.extensionID(), name, handler)
}

// Subscribe listens for event on extensionID's topic, which includes the
// runtime's lifecycle events (loaded, activated, failed, unloaded).
func (e *Events) Subscribe(extensionID, event string, handler func(payload any)) (Disposable, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	if e.deps.Bus == nil {
		return DisposeFunc(func() {}), nil
	}
	unsub := e.deps.Bus.On(bus.PluginTopic(extensionID, event), func(_ string, payload any) {
		handler(payload)
	})
	return e.track(DisposeFunc(unsub)), nil
}

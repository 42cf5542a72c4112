// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"slices"
	"strings"

	"github.com/samber/oops"
)

// ActivationKind is the trigger family of an activation event.
type ActivationKind string

// Activation triggers understood by the runtime.
const (
	ActivateAlways    ActivationKind = "*"
	ActivateOnStartup ActivationKind = "onStartupFinished"
	ActivateOnCommand ActivationKind = "onCommand"
	ActivateOnView    ActivationKind = "onView"
)

// ActivationEvent is a parsed activationEvents entry.
type ActivationEvent struct {
	Kind ActivationKind
	Arg  string
}

func (e ActivationEvent) String() string {
	if e.Arg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ":" + e.Arg
}

// Eager reports whether the event loads the extension at startup.
func (e ActivationEvent) Eager() bool {
	return e.Kind == ActivateAlways || e.Kind == ActivateOnStartup
}

// ParseActivationEvent parses "*", "onStartupFinished", "onCommand:<id>" or
// "onView:<id>".
func ParseActivationEvent(s string) (ActivationEvent, error) {
	kind, arg, hasArg := strings.Cut(s, ":")
	switch ActivationKind(kind) {
	case ActivateAlways, ActivateOnStartup:
		if hasArg {
			break
		}
		return ActivationEvent{Kind: ActivationKind(kind)}, nil
	case ActivateOnCommand, ActivateOnView:
		if arg == "" {
			break
		}
		return ActivationEvent{Kind: ActivationKind(kind), Arg: arg}, nil
	}
	return ActivationEvent{}, oops.Code(CodeManifestInvalid).
		In("extension").
		With("event", s).
		Errorf("unknown activation event %q", s)
}

// CommandEvent is the activation event fired before a command runs.
func CommandEvent(id string) string {
	return string(ActivateOnCommand) + ":" + id
}

// ViewEvent is the activation event fired when a view is shown.
func ViewEvent(id string) string {
	return string(ActivateOnView) + ":" + id
}

// Eager reports whether the extension loads at startup: it declares no
// activation events, or declares "*" or "onStartupFinished".
func (m *Manifest) Eager() bool {
	if len(m.ActivationEvents) == 0 {
		return true
	}
	for _, s := range m.ActivationEvents {
		if ev, err := ParseActivationEvent(s); err == nil && ev.Eager() {
			return true
		}
	}
	return false
}

// ActivatesOn reports whether event is one of the extension's triggers.
func (m *Manifest) ActivatesOn(event string) bool {
	return slices.Contains(m.ActivationEvents, event)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package command provides the global command registry shared by the host
// and every loaded extension.
package command

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"

	"github.com/samber/oops"
)

// HostOwner is the owner recorded for commands the host registers itself.
const HostOwner = "host"

// Handler executes a command. Arguments and results are JSON-compatible
// values so they can cross an isolation channel unchanged.
type Handler func(ctx context.Context, args ...any) (any, error)

// Entry is a registered command.
type Entry struct {
	ID      string
	Handler Handler
	Owner   string // extension id, or HostOwner
	seq     uint64
}

// Disposer removes one registration. Calling it more than once is a no-op.
type Disposer func()

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]*$`)

// ValidateID reports whether id is a well-formed command identifier.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return oops.Code(CodeInvalidID).
			With("command", id).
			Errorf("invalid command id %q", id)
	}
	return nil
}

// Invoke calls h, converting a panic into a COMMAND_FAILED error so a
// misbehaving handler cannot take the host down.
func Invoke(ctx context.Context, id string, h Handler, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Code(CodeHandlerFailed).
				With("command", id).
				With("stack", string(debug.Stack())).
				Errorf("command %s panicked: %v", id, fmt.Sprint(r))
		}
	}()
	return h(ctx, args...)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/logging"
)

// Commands is the commands namespace.
type Commands struct {
	binding
}

// Register adds a globally visible command owned by this extension. The
// returned disposable unregisters it and is also released on unload.
func (c *Commands) Register(id string, handler command.Handler) (Disposable, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	if c.deps.Registry == nil {
		return nil, oops.Code(command.CodeNotFound).Errorf("no command registry is configured")
	}
	extID := c.extensionID()
	var wrapped command.Handler
	if handler != nil {
		wrapped = func(ctx context.Context, args ...any) (any, error) {
			return handler(logging.WithExtension(ctx, extID), args...)
		}
	}
	dispose, err := c.deps.Registry.Register(id, wrapped, extID)
	if err != nil {
		return nil, err
	}
	return c.track(DisposeFunc(dispose)), nil
}

// Execute runs a command by id, searching the global registry first and
// then extension-local commands.
func (c *Commands) Execute(ctx context.Context, id string, args ...any) (any, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	if c.deps.Executor == nil {
		return nil, command.ErrNotFound(id)
	}
	return c.deps.Executor.ExecuteCommand(ctx, id, args...)
}

// List returns every executable command id.
func (c *Commands) List() []string {
	if c.deps.Executor != nil {
		return c.deps.Executor.CommandIDs()
	}
	if c.deps.Registry != nil {
		return c.deps.Registry.ListAll()
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package lua

import (
	"context"
	"os"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/extension"
)

// Loader runs .lua entry points. The script's top level executes at load
// time; activate and deactivate globals are called by the runtime.
type Loader struct{}

var _ extension.Loader = (*Loader)(nil)

// NewLoader creates a Lua loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Strategy implements extension.Loader.
func (*Loader) Strategy() extension.Strategy {
	return extension.StrategyLua
}

// Load implements extension.Loader.
func (*Loader) Load(ctx context.Context, req extension.LoadRequest) (extension.Module, error) {
	id := req.Manifest.ID
	code, err := os.ReadFile(req.Entry.Path)
	if err != nil {
		return nil, oops.Code(extension.CodeEntryUnresolvable).
			In("lua").
			With("extension", id).
			With("path", req.Entry.Path).
			Wrapf(err, "read script")
	}

	L, err := newState()
	if err != nil {
		return nil, err
	}

	L.SetContext(ctx)
	fn, err := L.LoadString(string(code))
	if err != nil {
		L.Close()
		return nil, oops.In("lua").With("extension", id).With("path", req.Entry.Path).Hint("syntax error").Wrap(err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return nil, oops.In("lua").With("extension", id).With("path", req.Entry.Path).Wrapf(err, "run script")
	}
	L.RemoveContext()

	return newModule(id, L), nil
}

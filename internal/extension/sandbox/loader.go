// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package sandbox

import (
	"context"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/pkg/errutil"
	"github.com/quayside/quayside/pkg/extproto"
)

// Loader is the extension.Loader for StrategySandboxed.
type Loader struct {
	factory ClientFactory
}

var _ extension.Loader = (*Loader)(nil)

// NewLoader creates a loader that starts processes with factory. A nil
// factory uses go-plugin.
func NewLoader(factory ClientFactory) *Loader {
	if factory == nil {
		factory = &PluginFactory{}
	}
	return &Loader{factory: factory}
}

// Strategy implements extension.Loader.
func (*Loader) Strategy() extension.Strategy {
	return extension.StrategySandboxed
}

// Load starts the process and opens its channel. The extension itself is
// loaded by the "load" envelope sent from Activate.
func (l *Loader) Load(ctx context.Context, req extension.LoadRequest) (extension.Module, error) {
	id := req.Manifest.ID
	client, err := l.factory.NewClient(ctx, req.Entry.Path)
	if err != nil {
		return nil, isolationErr(id, err, "start extension process")
	}
	stream, err := client.Open(ctx)
	if err != nil {
		client.Kill()
		return nil, isolationErr(id, err, "open isolation channel")
	}

	m := &module{id: id, api: req.API, client: client}
	m.calls = newDispatcher(m)
	m.peer = extproto.NewPeer(stream, m.serve)
	m.peer.Start()
	return m, nil
}

// isolationErr reports a channel or process failure as ISOLATION_FAILED.
// The cause's own code, if any, is kept as context.
func isolationErr(id string, cause error, what string) error {
	b := oops.Code(extension.CodeIsolationFailed).In("sandbox").With("extension", id)
	if code := errutil.Code(cause); code != "" {
		return b.With("cause_code", code).Errorf("%s: %s", what, errutil.Message(cause))
	}
	return b.Wrapf(cause, "%s", what)
}

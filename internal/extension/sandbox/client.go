// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package sandbox runs extensions in a child process reached only through
// the isolation channel. The host side is a proxy: commands the child
// registers become registry entries that forward "execute" envelopes, and
// Capability API calls arrive as "call" envelopes served against the
// extension's own API.
package sandbox

import (
	"context"
	"os/exec"
	"path/filepath"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/extproto"
)

// Client is a running extension process.
type Client interface {
	// Open starts the isolation channel.
	Open(ctx context.Context) (extproto.Stream, error)
	// Kill terminates the process.
	Kill()
}

// ClientFactory starts extension processes.
type ClientFactory interface {
	NewClient(ctx context.Context, path string) (Client, error)
}

// FactoryFunc adapts a function to ClientFactory.
type FactoryFunc func(ctx context.Context, path string) (Client, error)

// NewClient implements ClientFactory.
func (f FactoryFunc) NewClient(ctx context.Context, path string) (Client, error) {
	return f(ctx, path)
}

// PluginFactory starts executables with hashicorp/go-plugin.
type PluginFactory struct {
	// Env is appended to the host environment of the child.
	Env []string
}

// NewClient implements ClientFactory.
func (f *PluginFactory) NewClient(_ context.Context, path string) (Client, error) {
	cmd := exec.Command(path) // #nosec G204 -- path is resolved inside the extension package root
	cmd.Dir = filepath.Dir(path)
	cmd.Env = append(cmd.Environ(), f.Env...)

	c := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  extproto.Handshake,
		Plugins:          extproto.Plugins(nil),
		Cmd:              cmd,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolGRPC},
	})

	rpc, err := c.Client()
	if err != nil {
		c.Kill()
		return nil, oops.In("sandbox").With("path", path).Wrapf(err, "start extension process")
	}
	raw, err := rpc.Dispense(extproto.PluginName)
	if err != nil {
		c.Kill()
		return nil, oops.In("sandbox").With("path", path).Wrapf(err, "dispense isolation channel")
	}
	channel, ok := raw.(*extproto.Client)
	if !ok {
		c.Kill()
		return nil, oops.In("sandbox").With("path", path).Errorf("extension process returned %T, not a channel client", raw)
	}
	return &pluginClient{client: c, channel: channel}, nil
}

type pluginClient struct {
	client  *goplugin.Client
	channel *extproto.Client
}

func (c *pluginClient) Open(ctx context.Context) (extproto.Stream, error) {
	return c.channel.Open(ctx)
}

func (c *pluginClient) Kill() {
	c.client.Kill()
}

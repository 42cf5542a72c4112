// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import (
	"context"
	"errors"

	goplugin "github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

// Handshake is shared by the host and every extension binary. A binary
// started outside the host sees no magic cookie and exits with a hint.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "QUAYSIDE_EXTENSION",
	MagicCookieValue: "quayside-extension-v1",
}

// PluginName is the key the channel plugin is dispensed under.
const PluginName = "extension"

// Plugins returns the go-plugin set. impl is nil on the host side.
func Plugins(impl ChannelServer) map[string]goplugin.Plugin {
	return map[string]goplugin.Plugin{
		PluginName: &GRPCPlugin{Impl: impl},
	}
}

// GRPCPlugin adapts the Channel service to go-plugin.
type GRPCPlugin struct {
	goplugin.NetRPCUnsupportedPlugin
	// Impl is set in the extension process only.
	Impl ChannelServer
}

// GRPCServer registers the channel (extension process).
func (p *GRPCPlugin) GRPCServer(_ *goplugin.GRPCBroker, s *grpc.Server) error {
	if p.Impl == nil {
		return errors.New("extproto: channel implementation is nil")
	}
	RegisterChannelServer(s, p.Impl)
	return nil
}

// GRPCClient returns a *Client (host process).
func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *goplugin.GRPCBroker, c *grpc.ClientConn) (any, error) {
	return NewClient(c), nil
}

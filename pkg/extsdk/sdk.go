// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package extsdk is the SDK for sandboxed Quayside extensions. A sandboxed
// extension is an executable that the host starts as a child process and
// talks to over the isolation channel.
//
// Example usage:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/quayside/quayside/pkg/extsdk"
//	)
//
//	type hello struct{}
//
//	func (hello) Activate(ctx context.Context, host *extsdk.Host) error {
//		return host.RegisterCommand(ctx, "hello.greet", func(ctx context.Context, args ...any) (any, error) {
//			return "hello", nil
//		})
//	}
//
//	func main() {
//		extsdk.Serve(hello{})
//	}
package extsdk

import (
	"context"
	"log/slog"
	"os"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/quayside/quayside/pkg/extproto"
)

// Extension is implemented by every sandboxed extension.
type Extension interface {
	Activate(ctx context.Context, host *Host) error
}

// Deactivator is implemented by extensions with cleanup to run on unload.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// Handler runs a command.
type Handler func(ctx context.Context, args ...any) (any, error)

// Serve runs ext as a sandboxed extension. It blocks until the host ends
// the process and must be called from main.
func Serve(ext Extension) {
	if ext == nil {
		panic("extsdk: extension cannot be nil")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: extproto.Handshake,
		Plugins:         extproto.Plugins(&channel{ext: ext}),
		GRPCServer:      goplugin.DefaultGRPCServer,
	})
}

type channel struct {
	ext Extension
}

func (c *channel) Open(ctx context.Context, stream extproto.Stream) error {
	return NewSession(c.ext, stream).Run(ctx)
}

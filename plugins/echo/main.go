// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package main implements the echo extension, a sandboxed example that
// echoes its arguments and mirrors "say" events into an output channel.
//
// Build it next to its manifest:
//
//	go build -o plugins/echo/bin/echo ./plugins/echo
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quayside/quayside/pkg/extsdk"
)

type echo struct {
	out *extsdk.OutputChannel
}

func (e *echo) Activate(ctx context.Context, host *extsdk.Host) error {
	out, err := host.CreateOutputChannel(ctx, "Echo")
	if err != nil {
		return err
	}
	e.out = out

	if err := host.RegisterCommand(ctx, "echo.say", func(ctx context.Context, args ...any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		msg := strings.Join(parts, " ")
		if err := out.AppendLine(ctx, msg); err != nil {
			return nil, err
		}
		return msg, nil
	}); err != nil {
		return err
	}

	if err := host.RegisterCommand(ctx, "echo.show", func(ctx context.Context, _ ...any) (any, error) {
		return nil, out.Show(ctx)
	}); err != nil {
		return err
	}

	host.RegisterLocalCommand("echo.count", func(ctx context.Context, _ ...any) (any, error) {
		return host.StorageGet(ctx, "said", float64(0))
	})

	return host.On(ctx, "say", func(payload any) {
		ctx := context.Background()
		if err := out.AppendLine(ctx, fmt.Sprint(payload)); err != nil {
			slog.Warn("echo failed", "error", err)
			return
		}
		n, _ := host.StorageGet(ctx, "said", float64(0))
		count, _ := n.(float64)
		_ = host.StorageSet(ctx, "said", count+1)
	})
}

func (e *echo) Deactivate(ctx context.Context) error {
	if e.out == nil {
		return nil
	}
	return e.out.Dispose(ctx)
}

func main() {
	extsdk.Serve(&echo{})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package logging configures slog for the host. Records carry the service
// and version, the active span's trace ids, and the extension a context was
// attributed to with WithExtension.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type extensionKey struct{}

// WithExtension attributes records logged with ctx to extensionID.
func WithExtension(ctx context.Context, extensionID string) context.Context {
	return context.WithValue(ctx, extensionKey{}, extensionID)
}

// ExtensionFrom returns the id stored by WithExtension.
func ExtensionFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(extensionKey{}).(string)
	return id, ok && id != ""
}

// contextHandler adds attributes derived from the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		attrs = append(attrs, slog.String("span_id", sc.SpanID().String()))
	}
	if id, ok := ExtensionFrom(ctx); ok {
		attrs = append(attrs, slog.String("extension", id))
	}
	return attrs
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds a logger writing to w, or stderr when w is nil. format is
// "text" or "json"; anything else means json.
func Setup(service, version, format string, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler = slog.NewJSONHandler(w, opts)
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	}
	base = base.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})
	return slog.New(contextHandler{base})
}

// SetDefault installs a logger from Setup as the slog default.
func SetDefault(service, version, format string, level slog.Level) {
	slog.SetDefault(Setup(service, version, format, level, nil))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package errutil holds helpers for working with oops errors at the edges of
// the host: logging them with their structured context and asserting on them
// in tests.
package errutil

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Oops errors contribute their code and
// context as attributes; other errors are logged as a plain string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext is LogError with a context, so trace correlation from the
// logging handler is kept.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, Attrs(err)...)
}

// Attrs returns slog key/value pairs describing err.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// Code returns the oops code attached to err, or "" when there is none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

// Message returns the human-readable message of err without the oops
// decorations. It is what crosses the isolation channel as an error string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		return oopsErr.Error()
	}
	return err.Error()
}

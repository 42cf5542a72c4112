// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import "github.com/samber/oops"

// Error codes for Capability API calls.
const (
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendFailed      = "BACKEND_FAILED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeDisposed           = "EXTENSION_DISPOSED"
	CodeReservedEvent      = "EVENT_RESERVED"
)

func errUnavailable(extensionID, backend string) error {
	return oops.Code(CodeBackendUnavailable).
		With("extension", extensionID).
		With("backend", backend).
		Errorf("no %s backend is configured", backend)
}

func errBackend(extensionID, operation string, cause error) error {
	return oops.Code(CodeBackendFailed).
		With("extension", extensionID).
		With("operation", operation).
		Wrapf(cause, "%s failed", operation)
}

func errInvalid(extensionID, operation, format string, args ...any) error {
	return oops.Code(CodeInvalidArgument).
		With("extension", extensionID).
		With("operation", operation).
		Errorf(format, args...)
}

func errDisposed(extensionID string) error {
	return oops.Code(CodeDisposed).
		With("extension", extensionID).
		Errorf("extension %s has been unloaded", extensionID)
}

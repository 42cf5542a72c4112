// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package command

import (
	"github.com/samber/oops"
)

// Error codes for command registration and dispatch failures.
const (
	CodeNotFound      = "COMMAND_NOT_FOUND"
	CodeConflict      = "COMMAND_CONFLICT"
	CodeInvalidID     = "COMMAND_INVALID_ID"
	CodeHandlerFailed = "COMMAND_FAILED"
)

// ErrNotFound creates an error for a command with no handler in any tier.
func ErrNotFound(id string) error {
	return oops.Code(CodeNotFound).
		With("command", id).
		Errorf("command not found: %s", id)
}

// ErrConflict creates an error for a duplicate registration.
func ErrConflict(id, existingOwner, owner string) error {
	return oops.Code(CodeConflict).
		With("command", id).
		With("existing_owner", existingOwner).
		With("owner", owner).
		Errorf("command %s is already registered by %s", id, existingOwner)
}

// ErrNilHandler creates an error for a registration without a handler.
func ErrNilHandler(id string) error {
	return oops.Code(CodeInvalidID).
		With("command", id).
		Errorf("command %s registered without a handler", id)
}

// Failed wraps an error returned by a command handler.
func Failed(id string, cause error) error {
	return oops.Code(CodeHandlerFailed).
		With("command", id).
		Wrapf(cause, "command %s failed", id)
}

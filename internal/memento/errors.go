// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package memento

// Error codes for memento operations.
const (
	// CodeCorrupt marks a persisted value that could not be decoded. It is
	// logged and never returned to an extension.
	CodeCorrupt    = "STORAGE_CORRUPT"
	CodeInvalidKey = "STORAGE_INVALID_KEY"
	CodeEncode     = "STORAGE_ENCODE_FAILED"
	CodeBackend    = "STORAGE_BACKEND_FAILED"
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails the test unless err carries code. The deepest code
// in the chain is compared, which is the one callers match on.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err, "expected an error with code %s", code)
	_, isOops := oops.AsOops(err)
	require.True(t, isOops, "expected an oops error carrying %s, got %T: %v", code, err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails the test unless err carries key with value in
// its oops context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, isOops := oops.AsOops(err)
	require.True(t, isOops, "expected an oops error, got %T", err)
	got, found := oopsErr.Context()[key]
	require.True(t, found, "context key %q missing from %v", key, oopsErr.Context())
	assert.Equal(t, value, got)
}

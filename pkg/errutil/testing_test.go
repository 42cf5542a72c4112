// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/errutil"
)

func TestAssertErrorCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := oops.Code("COMMAND_NOT_FOUND").Errorf("command not found")
		errutil.AssertErrorCode(t, err, "COMMAND_NOT_FOUND")
	})

	t.Run("code survives wrapping", func(t *testing.T) {
		inner := oops.Code("ACTIVATION_FAILED").Errorf("activate threw")
		err := oops.With("extension", "e1").Wrapf(inner, "load e1")
		errutil.AssertErrorCode(t, err, "ACTIVATION_FAILED")
	})
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("extension", "e1").Errorf("activation failed")
	errutil.AssertErrorContext(t, err, "extension", "e1")
}

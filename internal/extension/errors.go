// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"github.com/samber/oops"

	"github.com/quayside/quayside/pkg/errutil"
)

// Error codes reported by manifest validation and the runtime.
const (
	CodeManifestInvalid       = "MANIFEST_INVALID"
	CodeDuplicateID           = "MANIFEST_DUPLICATE_ID"
	CodeEntryUnresolvable     = "ENTRY_UNRESOLVABLE"
	CodeEngineIncompatible    = "ENGINE_INCOMPATIBLE"
	CodeDependencyUnsatisfied = "DEPENDENCY_UNSATISFIED"
	CodeIsolationFailed       = "ISOLATION_FAILED"
	CodeLoadTimeout           = "LOAD_TIMEOUT"
	CodeActivationFailed      = "ACTIVATION_FAILED"
)

func manifestErr(id string) oops.OopsErrorBuilder {
	return oops.Code(CodeManifestInvalid).In("extension").With("extension", id)
}

// ErrDuplicateID reports an id that is already loaded or loading.
func ErrDuplicateID(id string) error {
	return oops.Code(CodeDuplicateID).
		In("extension").
		With("extension", id).
		Errorf("extension %s is already loaded", id)
}

// classify wraps cause under the builder's code. oops reports the innermost
// code of a chain, so a cause that already carries a code is folded into the
// message and recorded as cause_code instead of being wrapped.
func classify(b oops.OopsErrorBuilder, cause error, format string, args ...any) error {
	if code := errutil.Code(cause); code != "" {
		return b.With("cause_code", code).Errorf(format+": %s", append(args, errutil.Message(cause))...)
	}
	return b.Wrapf(cause, format, args...)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package backend

import (
	"context"
	"strings"
	"sync"
)

// Call is one invocation recorded by FakeRunner.
type Call struct {
	Stdin string
	Argv  []string
}

// Line is the invocation joined with spaces.
func (c Call) Line() string {
	return strings.Join(c.Argv, " ")
}

// FakeRunner records invocations and answers them from Responses, keyed by
// the argv joined with spaces. Unmatched invocations succeed with no
// output.
type FakeRunner struct {
	Responses map[string]Result
	Err       error

	mu    sync.Mutex
	calls []Call
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, stdin, name string, args ...string) (Result, error) {
	c := Call{Stdin: stdin, Argv: append([]string{name}, args...)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.Err != nil {
		return Result{}, f.Err
	}
	return f.Responses[c.Line()], nil
}

// Calls returns the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

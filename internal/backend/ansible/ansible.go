// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package ansible adapts ansible-playbook to api.AutomationBackend.
// Secrets are vaulted in process.
package ansible

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/backend"
	"github.com/quayside/quayside/internal/vault"
)

// DefaultCommand is used when no command line is configured.
const DefaultCommand = "ansible-playbook"

// Backend implements api.AutomationBackend.
type Backend struct {
	cmd *backend.Command
}

var _ api.AutomationBackend = (*Backend)(nil)

// New creates a backend running line.
func New(line string, runner backend.Runner) (*Backend, error) {
	if line == "" {
		line = DefaultCommand
	}
	cmd, err := backend.NewCommand(line, runner)
	if err != nil {
		return nil, err
	}
	return &Backend{cmd: cmd}, nil
}

// Available reports whether ansible-playbook is installed.
func (b *Backend) Available() bool {
	return b.cmd.Available()
}

// RunPlaybook implements api.AutomationBackend. A failed play is a result
// with OK false, not an error.
func (b *Backend) RunPlaybook(ctx context.Context, req api.PlaybookRequest) (api.PlaybookResult, error) {
	if req.Playbook == "" {
		return api.PlaybookResult{}, oops.In("ansible").Errorf("playbook is required")
	}
	args := []string{req.Playbook}
	if req.Inventory != "" {
		args = append(args, "--inventory", req.Inventory)
	}
	keys := make([]string, 0, len(req.ExtraVars))
	for k := range req.ExtraVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--extra-vars", k+"="+req.ExtraVars[k])
	}
	if req.Check {
		args = append(args, "--check")
	}

	res, err := b.cmd.Run(ctx, "", args...)
	if err != nil {
		return api.PlaybookResult{}, err
	}
	output := res.Stdout
	if res.Stderr != "" {
		output += res.Stderr
	}
	return api.PlaybookResult{OK: res.ExitCode == 0, ExitCode: res.ExitCode, Output: output}, nil
}

// ValidatePlaybook implements api.AutomationBackend with --syntax-check.
func (b *Backend) ValidatePlaybook(ctx context.Context, playbook string) (api.ValidationResult, error) {
	if playbook == "" {
		return api.ValidationResult{}, oops.In("ansible").Errorf("playbook is required")
	}
	res, err := b.cmd.Run(ctx, "", "--syntax-check", playbook)
	if err != nil {
		return api.ValidationResult{}, err
	}
	if res.ExitCode == 0 {
		return api.ValidationResult{Valid: true}, nil
	}
	return api.ValidationResult{Valid: false, Errors: syntaxErrors(res.Stderr)}, nil
}

// syntaxErrors keeps the "ERROR!" lines of ansible's output, or all of it
// when there are none.
func syntaxErrors(stderr string) []string {
	lines := backend.Lines(stderr)
	var errs []string
	for _, l := range lines {
		if msg, ok := strings.CutPrefix(l, "ERROR!"); ok {
			errs = append(errs, strings.TrimSpace(msg))
		}
	}
	if len(errs) == 0 {
		return lines
	}
	return errs
}

// EncryptSecret implements api.AutomationBackend.
func (b *Backend) EncryptSecret(_ context.Context, plaintext, password string) (string, error) {
	return vault.Encrypt(plaintext, password)
}

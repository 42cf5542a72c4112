// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package builtin

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/extension"
	"github.com/quayside/quayside/internal/memento"
)

// lastValidationKey holds the most recent ansible.validate result in
// workspace state.
const lastValidationKey = "lastValidation"

// ValidationRecord is what ansible.validate remembers per workspace.
type ValidationRecord struct {
	Playbook string    `json:"playbook"`
	Valid    bool      `json:"valid"`
	At       time.Time `json:"at"`
}

// AutomationHelper contributes ansible.validate and ansible.encrypt.
type AutomationHelper struct {
	api   *api.API
	state *memento.Memento
}

// Activate implements direct.Extension.
func (a *AutomationHelper) Activate(_ context.Context, ec *extension.Context) error {
	a.api = ec.API
	a.state = ec.WorkspaceState
	if _, err := ec.API.Commands.Register("ansible.validate", a.validate); err != nil {
		return err
	}
	_, err := ec.API.Commands.Register("ansible.encrypt", a.encrypt)
	return err
}

func (a *AutomationHelper) validate(ctx context.Context, args ...any) (any, error) {
	playbook := argString(args, 0)
	if playbook == "" {
		return nil, oops.In("builtin").With("command", "ansible.validate").Errorf("a playbook is required")
	}
	res, err := a.api.Automation.ValidatePlaybook(ctx, playbook)
	if err != nil {
		return nil, err
	}
	if a.state != nil {
		rec := ValidationRecord{Playbook: playbook, Valid: res.Valid, At: time.Now().UTC()}
		if err := a.state.Update(ctx, lastValidationKey, rec); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// encrypt vaults args[0]. Without a password argument the user is asked
// for one; dismissing the prompt returns nil.
func (a *AutomationHelper) encrypt(ctx context.Context, args ...any) (any, error) {
	plaintext := argString(args, 0)
	password := argString(args, 1)
	if password == "" {
		v, ok, err := a.api.Window.ShowInputBox(ctx, api.InputBoxOptions{
			Title:    "Vault password",
			Prompt:   "Password used to encrypt the secret",
			Password: true,
		})
		if err != nil || !ok {
			return nil, err
		}
		password = v
	}
	return a.api.Automation.EncryptSecret(ctx, plaintext, password)
}

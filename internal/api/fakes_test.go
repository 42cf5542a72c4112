// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api_test

import (
	"context"
	"errors"
	"sync"

	"github.com/quayside/quayside/internal/api"
)

type fakeUI struct {
	mu       sync.Mutex
	messages []api.Message
	outputs  []api.OutputChannelState
	items    []api.StatusBarItemState
	answer   string
	answered bool
}

func (u *fakeUI) ShowMessage(_ context.Context, msg api.Message) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages = append(u.messages, msg)
}

func (u *fakeUI) ShowInputBox(context.Context, string, api.InputBoxOptions) (string, bool, error) {
	return u.answer, u.answered, nil
}

func (u *fakeUI) ShowQuickPick(_ context.Context, _ string, items []string, _ api.QuickPickOptions) (string, bool, error) {
	if !u.answered {
		return "", false, nil
	}
	return items[0], true, nil
}

func (u *fakeUI) UpdateOutputChannel(st api.OutputChannelState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.outputs = append(u.outputs, st)
}

func (u *fakeUI) UpdateStatusBarItem(st api.StatusBarItemState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.items = append(u.items, st)
}

type fakeFS struct {
	files map[string]string
	edits map[string][]api.TextEdit
	fail  map[string]bool
}

func (f *fakeFS) ReadFile(_ context.Context, uri string) (string, error) {
	s, ok := f.files[uri]
	if !ok {
		return "", errors.New("no such file")
	}
	return s, nil
}

func (f *fakeFS) ApplyEdits(_ context.Context, uri string, edits []api.TextEdit) error {
	if f.fail[uri] {
		return errors.New("read-only")
	}
	if f.edits == nil {
		f.edits = map[string][]api.TextEdit{}
	}
	f.edits[uri] = append(f.edits[uri], edits...)
	return nil
}

type fakeContainers struct {
	list    []api.Container
	err     error
	started []string
}

func (f *fakeContainers) ListContainers(context.Context, bool) ([]api.Container, error) {
	return f.list, f.err
}

func (f *fakeContainers) StartContainer(_ context.Context, id string) error {
	f.started = append(f.started, id)
	return f.err
}

func (f *fakeContainers) StopContainer(context.Context, string) error { return f.err }

func (f *fakeContainers) ExecContainer(context.Context, string, []string) (api.ExecResult, error) {
	return api.ExecResult{ExitCode: 1, Stderr: "boom"}, f.err
}

type fakeOrchestration struct {
	applied []string
}

func (f *fakeOrchestration) ListPods(_ context.Context, ns string) ([]api.Pod, error) {
	return []api.Pod{{Name: "web-0", Namespace: ns, Phase: "Running"}}, nil
}

func (f *fakeOrchestration) ApplyManifest(_ context.Context, manifest string) ([]string, error) {
	f.applied = append(f.applied, manifest)
	return []string{"deployment.apps/web configured"}, nil
}

func (f *fakeOrchestration) DeleteResource(context.Context, string, string, string) error {
	return nil
}

type fakeAutomation struct{}

func (fakeAutomation) RunPlaybook(_ context.Context, req api.PlaybookRequest) (api.PlaybookResult, error) {
	return api.PlaybookResult{OK: !req.Check, Output: "PLAY RECAP"}, nil
}

func (fakeAutomation) ValidatePlaybook(context.Context, string) (api.ValidationResult, error) {
	return api.ValidationResult{Valid: true}, nil
}

func (fakeAutomation) EncryptSecret(_ context.Context, plaintext, _ string) (string, error) {
	return "$ANSIBLE_VAULT;1.1;AES256\n" + plaintext, nil
}

type fakeExecutor struct {
	ids []string
}

func (f *fakeExecutor) ExecuteCommand(_ context.Context, id string, args ...any) (any, error) {
	return append([]any{id}, args...), nil
}

func (f *fakeExecutor) CommandIDs() []string { return f.ids }

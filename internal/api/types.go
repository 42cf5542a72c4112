// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"
	"strings"
)

// FileSystem is the workspace file collaborator.
type FileSystem interface {
	ReadFile(ctx context.Context, uri string) (string, error)
	ApplyEdits(ctx context.Context, uri string, edits []TextEdit) error
}

// Position is a zero-based line/character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans Start (inclusive) to End (exclusive).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit groups text edits by document URI.
type WorkspaceEdit struct {
	Edits map[string][]TextEdit `json:"edits"`
}

// Severity of a window message.
type Severity int

// Message severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// ParseSeverity maps a name to a Severity, defaulting to info.
func ParseSeverity(name string) Severity {
	switch strings.ToLower(name) {
	case "warning", "warn":
		return SeverityWarning
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Message is a notification shown by the host.
type Message struct {
	ExtensionID string
	Text        string
	Severity    Severity
}

// InputBoxOptions configures ShowInputBox.
type InputBoxOptions struct {
	Title       string `json:"title,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
	Password    bool   `json:"password,omitempty"`
}

// QuickPickOptions configures ShowQuickPick.
type QuickPickOptions struct {
	Title       string `json:"title,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// OutputChannelState is the snapshot pushed to the UI whenever an output
// channel changes.
type OutputChannelState struct {
	ID          string
	ExtensionID string
	Name        string
	Content     string
	Visible     bool
	Disposed    bool
}

// Alignment of a status bar item.
type Alignment int

// Status bar alignments.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// StatusBarItemState is the snapshot pushed to the UI whenever a status bar
// item changes.
type StatusBarItemState struct {
	ID          string
	ExtensionID string
	Text        string
	Tooltip     string
	Command     string
	Alignment   Alignment
	Priority    int
	Visible     bool
	Disposed    bool
}

// UI is the host window collaborator.
type UI interface {
	ShowMessage(ctx context.Context, msg Message)
	ShowInputBox(ctx context.Context, extensionID string, opts InputBoxOptions) (string, bool, error)
	ShowQuickPick(ctx context.Context, extensionID string, items []string, opts QuickPickOptions) (string, bool, error)
	UpdateOutputChannel(state OutputChannelState)
	UpdateStatusBarItem(state StatusBarItemState)
}

// Container is a container known to the container backend.
type Container struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Image  string            `json:"image"`
	State  string            `json:"state"`
	Status string            `json:"status"`
	Ports  []string          `json:"ports,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// ExecResult is the outcome of running a command in a container.
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// ContainerBackend is the container runtime collaborator.
type ContainerBackend interface {
	ListContainers(ctx context.Context, all bool) ([]Container, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	ExecContainer(ctx context.Context, id string, cmd []string) (ExecResult, error)
}

// Pod is a pod known to the orchestration backend.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Node      string `json:"node,omitempty"`
	Ready     string `json:"ready"`
	Restarts  int    `json:"restarts"`
}

// OrchestrationBackend is the cluster collaborator.
type OrchestrationBackend interface {
	ListPods(ctx context.Context, namespace string) ([]Pod, error)
	ApplyManifest(ctx context.Context, manifest string) ([]string, error)
	DeleteResource(ctx context.Context, kind, name, namespace string) error
}

// PlaybookRequest describes a playbook run.
type PlaybookRequest struct {
	Playbook  string            `json:"playbook"`
	Inventory string            `json:"inventory,omitempty"`
	ExtraVars map[string]string `json:"extraVars,omitempty"`
	Check     bool              `json:"check,omitempty"`
}

// PlaybookResult is the outcome of a playbook run.
type PlaybookResult struct {
	OK       bool   `json:"ok"`
	ExitCode int    `json:"exitCode"`
	Output   string `json:"output"`
}

// ValidationResult is the outcome of a playbook syntax check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// AutomationBackend is the configuration-management collaborator.
type AutomationBackend interface {
	RunPlaybook(ctx context.Context, req PlaybookRequest) (PlaybookResult, error)
	ValidatePlaybook(ctx context.Context, playbook string) (ValidationResult, error)
	EncryptSecret(ctx context.Context, plaintext, password string) (string, error)
}

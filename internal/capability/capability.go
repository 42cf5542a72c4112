// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package capability

import (
	"slices"
	"strings"

	"github.com/samber/oops"
)

// Capabilities an extension manifest may declare. A declaration may also
// name a single operation below one of these, e.g. "container-ops.list".
const (
	Filesystem       = "filesystem"
	Network          = "network"
	Credentials      = "credentials"
	Terminal         = "terminal"
	ContainerOps     = "container-ops"
	OrchestrationOps = "orchestration-ops"
	AutomationOps    = "automation-ops"
	System           = "system"
	Clipboard        = "clipboard"
	Notifications    = "notifications"
)

// Known lists every top-level capability.
var Known = []string{
	Filesystem, Network, Credentials, Terminal,
	ContainerOps, OrchestrationOps, AutomationOps,
	System, Clipboard, Notifications,
}

// CodeDenied is the error code returned when an extension calls an operation
// it did not declare.
const CodeDenied = "CAPABILITY_DENIED"

// Validate reports whether declared is an acceptable manifest entry: a known
// capability, optionally followed by dotted operation segments or globs.
func Validate(declared string) error {
	if declared == "*" || declared == "**" {
		return nil
	}
	root, _, _ := strings.Cut(declared, ".")
	if !slices.Contains(Known, root) {
		return oops.Code("MANIFEST_INVALID").
			With("capability", declared).
			Errorf("unknown capability %q", declared)
	}
	return nil
}

// Expand turns manifest declarations into grant patterns. A bare capability
// grants itself and every operation below it.
func Expand(declared []string) []string {
	patterns := make([]string, 0, len(declared)*2)
	for _, d := range declared {
		patterns = append(patterns, d)
		if !strings.ContainsAny(d, "*?[{") {
			patterns = append(patterns, d+".**")
		}
	}
	return patterns
}

// Denied builds the error for extensionID lacking capability.
func Denied(extensionID, capability string) error {
	return oops.Code(CodeDenied).
		With("extension", extensionID).
		With("capability", capability).
		Hint("declare the capability in the extension manifest").
		Errorf("extension %s lacks capability %s", extensionID, capability)
}

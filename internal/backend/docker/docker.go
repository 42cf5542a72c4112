// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package docker adapts the docker CLI (or a compatible one such as
// podman) to api.ContainerBackend.
package docker

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/backend"
)

// DefaultCommand is used when no command line is configured.
const DefaultCommand = "docker"

// Backend implements api.ContainerBackend.
type Backend struct {
	cmd *backend.Command
}

var _ api.ContainerBackend = (*Backend)(nil)

// New creates a backend running line, e.g. "docker" or "sudo -n docker".
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

// Available reports whether the CLI is installed.
func (b *Backend) Available() bool {
	return b.cmd.Available()
}

// psLine is one line of `docker ps --format '{{json .}}'`.
type psLine struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	Image  string `json:"Image"`
	State  string `json:"State"`
	Status string `json:"Status"`
	Ports  string `json:"Ports"`
	Labels string `json:"Labels"`
}

// ListContainers implements api.ContainerBackend.
func (b *Backend) ListContainers(ctx context.Context, all bool) ([]api.Container, error) {
	args := []string{"ps", "--no-trunc", "--format", "{{json .}}"}
	if all {
		args = append(args, "--all")
	}
	out, err := b.cmd.Output(ctx, "", args...)
	if err != nil {
		return nil, err
	}

	lines := backend.Lines(out)
	containers := make([]api.Container, 0, len(lines))
	for _, line := range lines {
		var ps psLine
		if err := json.Unmarshal([]byte(line), &ps); err != nil {
			return nil, oops.In("docker").With("line", line).Wrapf(err, "parse docker ps output")
		}
		containers = append(containers, api.Container{
			ID:     ps.ID,
			Name:   ps.Names,
			Image:  ps.Image,
			State:  ps.State,
			Status: ps.Status,
			Ports:  splitList(ps.Ports),
			Labels: parseLabels(ps.Labels),
		})
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	return containers, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLabels(s string) map[string]string {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil
	}
	labels := make(map[string]string, len(parts))
	for _, p := range parts {
		k, v, _ := strings.Cut(p, "=")
		labels[k] = v
	}
	return labels
}

// StartContainer implements api.ContainerBackend.
func (b *Backend) StartContainer(ctx context.Context, id string) error {
	_, err := b.cmd.Output(ctx, "", "start", id)
	return err
}

// StopContainer implements api.ContainerBackend.
func (b *Backend) StopContainer(ctx context.Context, id string) error {
	_, err := b.cmd.Output(ctx, "", "stop", id)
	return err
}

// ExecContainer implements api.ContainerBackend. A command that runs and
// exits non-zero is a result, not an error.
func (b *Backend) ExecContainer(ctx context.Context, id string, cmd []string) (api.ExecResult, error) {
	if len(cmd) == 0 {
		return api.ExecResult{}, oops.In("docker").With("container", id).Errorf("exec needs a command")
	}
	res, err := b.cmd.Run(ctx, "", append([]string{"exec", id}, cmd...)...)
	if err != nil {
		return api.ExecResult{}, err
	}
	return api.ExecResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

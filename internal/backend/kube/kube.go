// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package kube adapts kubectl to api.OrchestrationBackend.
package kube

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/backend"
)

// DefaultCommand is used when no command line is configured.
const DefaultCommand = "kubectl"

// Backend implements api.OrchestrationBackend.
type Backend struct {
	cmd *backend.Command
}

var _ api.OrchestrationBackend = (*Backend)(nil)

// New creates a backend running line, e.g. "kubectl --context staging".
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

// Available reports whether kubectl is installed.
func (b *Backend) Available() bool {
	return b.cmd.Available()
}

type podList struct {
	Items []struct {
		Metadata struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
		} `json:"metadata"`
		Spec struct {
			NodeName   string `json:"nodeName"`
			Containers []struct {
				Name string `json:"name"`
			} `json:"containers"`
		} `json:"spec"`
		Status struct {
			Phase             string `json:"phase"`
			ContainerStatuses []struct {
				Ready        bool `json:"ready"`
				RestartCount int  `json:"restartCount"`
			} `json:"containerStatuses"`
		} `json:"status"`
	} `json:"items"`
}

// ListPods implements api.OrchestrationBackend. An empty namespace uses
// the current context's namespace.
func (b *Backend) ListPods(ctx context.Context, namespace string) ([]api.Pod, error) {
	args := []string{"get", "pods", "-o", "json"}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	out, err := b.cmd.Output(ctx, "", args...)
	if err != nil {
		return nil, err
	}

	var list podList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, oops.In("kube").Wrapf(err, "parse kubectl pod list")
	}
	pods := make([]api.Pod, 0, len(list.Items))
	for _, item := range list.Items {
		ready, restarts := 0, 0
		for _, cs := range item.Status.ContainerStatuses {
			if cs.Ready {
				ready++
			}
			restarts += cs.RestartCount
		}
		pods = append(pods, api.Pod{
			Name:      item.Metadata.Name,
			Namespace: item.Metadata.Namespace,
			Phase:     item.Status.Phase,
			Node:      item.Spec.NodeName,
			Ready:     fmt.Sprintf("%d/%d", ready, len(item.Spec.Containers)),
			Restarts:  restarts,
		})
	}
	sort.Slice(pods, func(i, j int) bool {
		if pods[i].Namespace != pods[j].Namespace {
			return pods[i].Namespace < pods[j].Namespace
		}
		return pods[i].Name < pods[j].Name
	})
	return pods, nil
}

// ApplyManifest implements api.OrchestrationBackend. It returns the
// applied resources as kind/name.
func (b *Backend) ApplyManifest(ctx context.Context, manifest string) ([]string, error) {
	out, err := b.cmd.Output(ctx, manifest, "apply", "-f", "-", "-o", "name")
	if err != nil {
		return nil, err
	}
	return backend.Lines(out), nil
}

// DeleteResource implements api.OrchestrationBackend.
func (b *Backend) DeleteResource(ctx context.Context, kind, name, namespace string) error {
	if kind == "" || name == "" {
		return oops.In("kube").With("kind", kind).With("name", name).Errorf("delete needs a kind and a name")
	}
	args := []string{"delete", kind, name}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	_, err := b.cmd.Output(ctx, "", args...)
	return err
}

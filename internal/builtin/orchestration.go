// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package builtin

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/extension"
)

// Configuration keys read by the orchestration assistant.
const (
	orchestrationSection = "orchestration"
	defaultRestartLimit  = 5
)

// PodHealth is the result of k8s.podHealth.
type PodHealth struct {
	Namespace string   `json:"namespace"`
	Total     int      `json:"total"`
	Healthy   int      `json:"healthy"`
	Unhealthy []string `json:"unhealthy"`
	Restarts  int      `json:"restarts"`
}

// OrchestrationAssistant contributes k8s.podHealth and k8s.applyFile.
type OrchestrationAssistant struct {
	api *api.API
	out *api.OutputChannel
}

// Activate implements direct.Extension.
func (o *OrchestrationAssistant) Activate(_ context.Context, ec *extension.Context) error {
	o.api = ec.API
	out, err := ec.API.Window.CreateOutputChannel("Kubernetes")
	if err != nil {
		return err
	}
	o.out = out

	if _, err := ec.API.Commands.Register("k8s.podHealth", o.podHealth); err != nil {
		return err
	}
	_, err = ec.API.Commands.Register("k8s.applyFile", o.applyFile)
	return err
}

func (o *OrchestrationAssistant) config() *api.Configuration {
	return o.api.Workspace.GetConfiguration(orchestrationSection)
}

// podHealth counts pods that are running or completed with every
// container ready and no more restarts than the configured threshold.
func (o *OrchestrationAssistant) podHealth(ctx context.Context, args ...any) (any, error) {
	ns := argString(args, 0)
	if ns == "" {
		ns, _ = o.config().Get("namespace", "").(string)
	}
	limit := toInt(o.config().Get("restartThreshold", defaultRestartLimit), defaultRestartLimit)

	pods, err := o.api.Orchestration.ListPods(ctx, ns)
	if err != nil {
		return nil, err
	}
	h := PodHealth{Namespace: ns, Total: len(pods), Unhealthy: []string{}}
	for _, p := range pods {
		h.Restarts += p.Restarts
		if podHealthy(p, limit) {
			h.Healthy++
			continue
		}
		h.Unhealthy = append(h.Unhealthy, p.Namespace+"/"+p.Name)
	}
	sort.Strings(h.Unhealthy)
	return h, nil
}

func podHealthy(p api.Pod, restartLimit int) bool {
	switch p.Phase {
	case "Succeeded":
		return true
	case "Running":
	default:
		return false
	}
	if p.Restarts > restartLimit {
		return false
	}
	ready, total, ok := strings.Cut(p.Ready, "/")
	return !ok || ready == total
}

// applyFile applies the manifest stored at the given workspace uri.
func (o *OrchestrationAssistant) applyFile(ctx context.Context, args ...any) (any, error) {
	uri := argString(args, 0)
	if uri == "" {
		return nil, oops.In("builtin").With("command", "k8s.applyFile").Errorf("a manifest file is required")
	}
	doc, err := o.api.Workspace.OpenTextDocument(ctx, uri)
	if err != nil {
		return nil, err
	}
	applied, err := o.api.Orchestration.ApplyManifest(ctx, doc.Text())
	if err != nil {
		o.out.AppendLine("apply " + uri + " failed: " + err.Error())
		return nil, err
	}
	for _, r := range applied {
		o.out.AppendLine(r)
	}
	return applied, nil
}

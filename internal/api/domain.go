// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quayside/quayside/internal/capability"
)

func op(group, name string) string {
	return group + "." + name
}

// Containers is the container-ops namespace.
type Containers struct {
	binding
}

func (c *Containers) backend(name string) (ContainerBackend, error) {
	if err := c.require(op(capability.ContainerOps, name)); err != nil {
		return nil, err
	}
	if c.deps.Containers == nil {
		return nil, errUnavailable(c.extensionID(), "container")
	}
	return c.deps.Containers, nil
}

// List returns running containers, or every container when all is set.
func (c *Containers) List(ctx context.Context, all bool) ([]Container, error) {
	b, err := c.backend("list")
	if err != nil {
		return nil, err
	}
	out, err := b.ListContainers(ctx, all)
	if err != nil {
		return nil, errBackend(c.extensionID(), "containers.list", err)
	}
	return out, nil
}

// Start starts a stopped container.
func (c *Containers) Start(ctx context.Context, id string) error {
	b, err := c.backend("start")
	if err != nil {
		return err
	}
	if id == "" {
		return errInvalid(c.extensionID(), "containers.start", "container id is required")
	}
	if err := b.StartContainer(ctx, id); err != nil {
		return errBackend(c.extensionID(), "containers.start", err)
	}
	return nil
}

// Stop stops a running container.
func (c *Containers) Stop(ctx context.Context, id string) error {
	b, err := c.backend("stop")
	if err != nil {
		return err
	}
	if id == "" {
		return errInvalid(c.extensionID(), "containers.stop", "container id is required")
	}
	if err := b.StopContainer(ctx, id); err != nil {
		return errBackend(c.extensionID(), "containers.stop", err)
	}
	return nil
}

// Exec runs cmd inside a container. A non-zero exit code is a result, not an
// error.
func (c *Containers) Exec(ctx context.Context, id string, cmd []string) (ExecResult, error) {
	b, err := c.backend("exec")
	if err != nil {
		return ExecResult{}, err
	}
	if id == "" || len(cmd) == 0 {
		return ExecResult{}, errInvalid(c.extensionID(), "containers.exec", "container id and command are required")
	}
	res, err := b.ExecContainer(ctx, id, cmd)
	if err != nil {
		return ExecResult{}, errBackend(c.extensionID(), "containers.exec", err)
	}
	return res, nil
}

// Orchestration is the orchestration-ops namespace.
type Orchestration struct {
	binding
}

func (o *Orchestration) backend(name string) (OrchestrationBackend, error) {
	if err := o.require(op(capability.OrchestrationOps, name)); err != nil {
		return nil, err
	}
	if o.deps.Orchestration == nil {
		return nil, errUnavailable(o.extensionID(), "orchestration")
	}
	return o.deps.Orchestration, nil
}

// ListPods returns pods in namespace; an empty namespace means all.
func (o *Orchestration) ListPods(ctx context.Context, namespace string) ([]Pod, error) {
	b, err := o.backend("list")
	if err != nil {
		return nil, err
	}
	pods, err := b.ListPods(ctx, namespace)
	if err != nil {
		return nil, errBackend(o.extensionID(), "orchestration.listPods", err)
	}
	return pods, nil
}

// ApplyManifest applies a multi-document YAML manifest and returns the
// resources the backend reports as changed. Every document must parse and
// carry apiVersion and kind before anything is sent to the cluster.
func (o *Orchestration) ApplyManifest(ctx context.Context, manifest string) ([]string, error) {
	b, err := o.backend("apply")
	if err != nil {
		return nil, err
	}
	if err := checkManifest(manifest); err != nil {
		return nil, errInvalid(o.extensionID(), "orchestration.applyManifest", "%s", err.Error())
	}
	out, err := b.ApplyManifest(ctx, manifest)
	if err != nil {
		return nil, errBackend(o.extensionID(), "orchestration.applyManifest", err)
	}
	return out, nil
}

func checkManifest(manifest string) error {
	dec := yaml.NewDecoder(strings.NewReader(manifest))
	docs := 0
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if doc == nil {
			continue
		}
		docs++
		for _, field := range []string{"apiVersion", "kind"} {
			if s, _ := doc[field].(string); s == "" {
				return fmt.Errorf("document %d is missing %s", docs, field)
			}
		}
	}
	if docs == 0 {
		return errors.New("manifest contains no documents")
	}
	return nil
}

// DeleteResource deletes a named resource.
func (o *Orchestration) DeleteResource(ctx context.Context, kind, name, namespace string) error {
	b, err := o.backend("delete")
	if err != nil {
		return err
	}
	if kind == "" || name == "" {
		return errInvalid(o.extensionID(), "orchestration.deleteResource", "kind and name are required")
	}
	if err := b.DeleteResource(ctx, kind, name, namespace); err != nil {
		return errBackend(o.extensionID(), "orchestration.deleteResource", err)
	}
	return nil
}

// Automation is the automation-ops namespace.
type Automation struct {
	binding
}

func (a *Automation) backend(name string) (AutomationBackend, error) {
	if err := a.require(op(capability.AutomationOps, name)); err != nil {
		return nil, err
	}
	if a.deps.Automation == nil {
		return nil, errUnavailable(a.extensionID(), "automation")
	}
	return a.deps.Automation, nil
}

// RunPlaybook runs a playbook. A failed play is reported in the result.
func (a *Automation) RunPlaybook(ctx context.Context, req PlaybookRequest) (PlaybookResult, error) {
	b, err := a.backend("run")
	if err != nil {
		return PlaybookResult{}, err
	}
	if req.Playbook == "" {
		return PlaybookResult{}, errInvalid(a.extensionID(), "automation.runPlaybook", "playbook is required")
	}
	res, err := b.RunPlaybook(ctx, req)
	if err != nil {
		return PlaybookResult{}, errBackend(a.extensionID(), "automation.runPlaybook", err)
	}
	return res, nil
}

// ValidatePlaybook checks playbook syntax without running it.
func (a *Automation) ValidatePlaybook(ctx context.Context, playbook string) (ValidationResult, error) {
	b, err := a.backend("validate")
	if err != nil {
		return ValidationResult{}, err
	}
	res, err := b.ValidatePlaybook(ctx, playbook)
	if err != nil {
		return ValidationResult{}, errBackend(a.extensionID(), "automation.validatePlaybook", err)
	}
	return res, nil
}

// EncryptSecret produces a vault-encrypted blob. It requires both
// automation-ops.encrypt and credentials.
func (a *Automation) EncryptSecret(ctx context.Context, plaintext, password string) (string, error) {
	b, err := a.backend("encrypt")
	if err != nil {
		return "", err
	}
	if err := a.require(capability.Credentials); err != nil {
		return "", err
	}
	if password == "" {
		return "", errInvalid(a.extensionID(), "automation.encryptSecret", "password is required")
	}
	out, err := b.EncryptSecret(ctx, plaintext, password)
	if err != nil {
		return "", errBackend(a.extensionID(), "automation.encryptSecret", err)
	}
	return out, nil
}

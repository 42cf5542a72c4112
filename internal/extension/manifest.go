// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package extension loads extensions described by a manifest, runs each in
// an isolation strategy and drives the activate/deactivate lifecycle.
package extension

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/quayside/quayside/internal/capability"
	"github.com/quayside/quayside/internal/command"
	"github.com/quayside/quayside/internal/configuration"
	"github.com/quayside/quayside/internal/when"
)

// ManifestFiles are the file names probed in a package root, in order.
var ManifestFiles = []string{"extension.yaml", "extension.yml", "extension.json"}

// Manifest describes an extension package.
type Manifest struct {
	ID               string            `yaml:"id" json:"id" jsonschema:"pattern=^[a-z0-9][a-z0-9._-]*$"`
	Name             string            `yaml:"name" json:"name"`
	Version          string            `yaml:"version" json:"version"`
	Description      string            `yaml:"description,omitempty" json:"description,omitempty"`
	Author           string            `yaml:"author,omitempty" json:"author,omitempty"`
	Publisher        string            `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	Main             string            `yaml:"main" json:"main"`
	Engines          Engines           `yaml:"engines,omitempty" json:"engines,omitempty"`
	Capabilities     []string          `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	ActivationEvents []string          `yaml:"activationEvents,omitempty" json:"activationEvents,omitempty"`
	Dependencies     map[string]string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Contributes      Contributes       `yaml:"contributes,omitempty" json:"contributes,omitempty"`
}

// Engines constrains the host versions an extension runs on.
type Engines struct {
	Quayside string `yaml:"quayside,omitempty" json:"quayside,omitempty"`
}

// Contributes lists the contribution points an extension fills.
type Contributes struct {
	Commands      []CommandContribution      `yaml:"commands,omitempty" json:"commands,omitempty"`
	Views         []ViewContribution         `yaml:"views,omitempty" json:"views,omitempty"`
	Menus         map[string][]MenuItem      `yaml:"menus,omitempty" json:"menus,omitempty"`
	Keybindings   []Keybinding               `yaml:"keybindings,omitempty" json:"keybindings,omitempty"`
	Configuration *ConfigurationContribution `yaml:"configuration,omitempty" json:"configuration,omitempty"`
}

// CommandContribution declares a command shown by the host.
type CommandContribution struct {
	Command    string `yaml:"command" json:"command"`
	Title      string `yaml:"title" json:"title"`
	Category   string `yaml:"category,omitempty" json:"category,omitempty"`
	Icon       string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Enablement string `yaml:"enablement,omitempty" json:"enablement,omitempty"`
}

// ViewKind is how a view renders.
type ViewKind string

// View kinds.
const (
	ViewTree    ViewKind = "tree"
	ViewWebview ViewKind = "webview"
)

// ViewContribution declares a panel.
type ViewContribution struct {
	ID   string   `yaml:"id" json:"id"`
	Name string   `yaml:"name" json:"name"`
	Type ViewKind `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=tree,enum=webview"`
	When string   `yaml:"when,omitempty" json:"when,omitempty"`
}

// MenuItem inserts a command into a host menu.
type MenuItem struct {
	Command string `yaml:"command" json:"command"`
	When    string `yaml:"when,omitempty" json:"when,omitempty"`
	Group   string `yaml:"group,omitempty" json:"group,omitempty"`
}

// Keybinding binds a key chord to a command.
type Keybinding struct {
	Command string `yaml:"command" json:"command"`
	Key     string `yaml:"key" json:"key"`
	Mac     string `yaml:"mac,omitempty" json:"mac,omitempty"`
	When    string `yaml:"when,omitempty" json:"when,omitempty"`
}

// ConfigurationContribution declares settings and their schemas.
type ConfigurationContribution struct {
	Title      string                            `yaml:"title,omitempty" json:"title,omitempty"`
	Properties map[string]configuration.Property `yaml:"properties,omitempty" json:"properties,omitempty"`
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// maxIDLength bounds extension ids.
const maxIDLength = 128

// ParseManifest parses and validates an extension manifest. JSON manifests
// are accepted as YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, oops.Code(CodeManifestInvalid).In("extension").Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code(CodeManifestInvalid).In("extension").Wrapf(err, "invalid manifest")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadManifest finds and parses the manifest in a package root.
func ReadManifest(dir string) (*Manifest, error) {
	for _, name := range ManifestFiles {
		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is a package root chosen by the host
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, oops.Code(CodeManifestInvalid).In("extension").With("path", dir).Wrapf(err, "read manifest")
		}
		m, err := ParseManifest(data)
		if err != nil {
			return nil, oops.With("path", filepath.Join(dir, name)).Wrap(err)
		}
		return m, nil
	}
	return nil, oops.Code(CodeManifestInvalid).
		In("extension").
		With("path", dir).
		Errorf("no manifest found in %s (looked for %s)", dir, strings.Join(ManifestFiles, ", "))
}

// SemVer returns the parsed version. Validate guarantees it parses.
func (m *Manifest) SemVer() *semver.Version {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil
	}
	return v
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.ID == "" || !idPattern.MatchString(m.ID) {
		return manifestErr(m.ID).Errorf("id %q must start with a-z or 0-9 and contain only a-z, 0-9, '.', '_' and '-'", m.ID)
	}
	if len(m.ID) > maxIDLength {
		return manifestErr(m.ID).Errorf("id must be %d characters or less, got %d", maxIDLength, len(m.ID))
	}
	if m.Name == "" {
		return manifestErr(m.ID).Errorf("name is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return manifestErr(m.ID).With("version", m.Version).Wrapf(err, "version must be semantic")
	}
	if strings.TrimSpace(m.Main) == "" {
		return oops.Code(CodeEntryUnresolvable).In("extension").With("extension", m.ID).Errorf("main is required")
	}
	if m.Engines.Quayside != "" {
		if _, err := semver.NewConstraint(m.Engines.Quayside); err != nil {
			return manifestErr(m.ID).With("engine", m.Engines.Quayside).Wrapf(err, "engines.quayside is not a version constraint")
		}
	}
	for dep, c := range m.Dependencies {
		if dep == m.ID {
			return manifestErr(m.ID).Errorf("extension cannot depend on itself")
		}
		if !idPattern.MatchString(dep) {
			return manifestErr(m.ID).With("dependency", dep).Errorf("dependency id %q is invalid", dep)
		}
		if _, err := semver.NewConstraint(c); err != nil {
			return manifestErr(m.ID).With("dependency", dep).Wrapf(err, "dependency constraint %q is invalid", c)
		}
	}
	for _, c := range m.Capabilities {
		if err := capability.Validate(c); err != nil {
			return oops.With("extension", m.ID).Wrap(err)
		}
	}
	for _, ev := range m.ActivationEvents {
		if _, err := ParseActivationEvent(ev); err != nil {
			return classify(manifestErr(m.ID), err, "activation event %q", ev)
		}
	}
	return m.Contributes.validate(m.ID)
}

func (c *Contributes) validate(id string) error {
	seen := make(map[string]bool, len(c.Commands))
	for _, cmd := range c.Commands {
		if err := command.ValidateID(cmd.Command); err != nil {
			return classify(manifestErr(id).With("command", cmd.Command), err, "contributed command")
		}
		if seen[cmd.Command] {
			return manifestErr(id).With("command", cmd.Command).Errorf("command %s is contributed twice", cmd.Command)
		}
		seen[cmd.Command] = true
		if cmd.Title == "" {
			return manifestErr(id).With("command", cmd.Command).Errorf("command %s needs a title", cmd.Command)
		}
		if err := checkPredicate(id, cmd.Enablement); err != nil {
			return err
		}
	}

	views := make(map[string]bool, len(c.Views))
	for _, v := range c.Views {
		if v.ID == "" || v.Name == "" {
			return manifestErr(id).Errorf("views need an id and a name")
		}
		if views[v.ID] {
			return manifestErr(id).With("view", v.ID).Errorf("view %s is contributed twice", v.ID)
		}
		views[v.ID] = true
		switch v.Type {
		case "", ViewTree, ViewWebview:
		default:
			return manifestErr(id).With("view", v.ID).Errorf("view type must be tree or webview, got %q", v.Type)
		}
		if err := checkPredicate(id, v.When); err != nil {
			return err
		}
	}

	for location, items := range c.Menus {
		for _, item := range items {
			if item.Command == "" {
				return manifestErr(id).With("menu", location).Errorf("menu item needs a command")
			}
			if err := checkPredicate(id, item.When); err != nil {
				return err
			}
		}
	}

	for _, kb := range c.Keybindings {
		if kb.Command == "" || kb.Key == "" {
			return manifestErr(id).Errorf("keybindings need a command and a key")
		}
		if err := checkPredicate(id, kb.When); err != nil {
			return err
		}
	}

	if c.Configuration != nil {
		for key, p := range c.Configuration.Properties {
			if _, err := p.Compile(key); err != nil {
				return classify(manifestErr(id).With("setting", key), err, "configuration property %s", key)
			}
		}
	}
	return nil
}

func checkPredicate(id, src string) error {
	if _, err := when.Compile(src); err != nil {
		return classify(manifestErr(id).With("predicate", src), err, "predicate %q", src)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"sort"
	"sync"

	"github.com/quayside/quayside/internal/when"
)

// ContributedCommand is a command contribution with its owner and whether
// its enablement predicate holds.
type ContributedCommand struct {
	CommandContribution
	ExtensionID string `json:"extensionId"`
	Enabled     bool   `json:"enabled"`
}

// ContributedView is a view contribution with its owner.
type ContributedView struct {
	ViewContribution
	ExtensionID string `json:"extensionId"`
}

// ContributedMenuItem is a menu insertion with its owner.
type ContributedMenuItem struct {
	MenuItem
	ExtensionID string `json:"extensionId"`
}

// ContributedKeybinding is a key binding with its owner.
type ContributedKeybinding struct {
	Keybinding
	ExtensionID string `json:"extensionId"`
}

type compiledContributions struct {
	manifest   *Manifest
	predicates map[string]*when.Predicate
}

func (c *compiledContributions) holds(src string, ctx when.Context) bool {
	p, ok := c.predicates[src]
	if !ok {
		return true
	}
	return p.Eval(ctx)
}

// Contributions aggregates the contribution points of loaded extensions.
type Contributions struct {
	mu    sync.RWMutex
	byExt map[string]*compiledContributions
}

// NewContributions creates an empty registry.
func NewContributions() *Contributions {
	return &Contributions{byExt: make(map[string]*compiledContributions)}
}

// Add indexes a manifest's contributions, replacing any previous entry for
// the same id. Predicates that fail to compile are treated as always true;
// manifests are validated before they get here.
func (c *Contributions) Add(m *Manifest) {
	cc := &compiledContributions{manifest: m, predicates: make(map[string]*when.Predicate)}
	add := func(src string) {
		if src == "" {
			return
		}
		if p, err := when.Compile(src); err == nil {
			cc.predicates[src] = p
		}
	}
	for _, cmd := range m.Contributes.Commands {
		add(cmd.Enablement)
	}
	for _, v := range m.Contributes.Views {
		add(v.When)
	}
	for _, items := range m.Contributes.Menus {
		for _, it := range items {
			add(it.When)
		}
	}
	for _, kb := range m.Contributes.Keybindings {
		add(kb.When)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byExt[m.ID] = cc
}

// Remove drops an extension's contributions.
func (c *Contributions) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byExt, id)
}

func (c *Contributions) each(fn func(id string, cc *compiledContributions)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.byExt))
	for id := range c.byExt {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(id, c.byExt[id])
	}
}

// Commands lists every contributed command, evaluating enablement against
// ctx.
func (c *Contributions) Commands(ctx when.Context) []ContributedCommand {
	var out []ContributedCommand
	c.each(func(id string, cc *compiledContributions) {
		for _, cmd := range cc.manifest.Contributes.Commands {
			out = append(out, ContributedCommand{
				CommandContribution: cmd,
				ExtensionID:         id,
				Enabled:             cc.holds(cmd.Enablement, ctx),
			})
		}
	})
	return out
}

// Views lists contributed views whose when clause holds.
func (c *Contributions) Views(ctx when.Context) []ContributedView {
	var out []ContributedView
	c.each(func(id string, cc *compiledContributions) {
		for _, v := range cc.manifest.Contributes.Views {
			if v.Type == "" {
				v.Type = ViewTree
			}
			if cc.holds(v.When, ctx) {
				out = append(out, ContributedView{ViewContribution: v, ExtensionID: id})
			}
		}
	})
	return out
}

// Menu lists the items inserted at location whose when clause holds,
// ordered by group.
func (c *Contributions) Menu(location string, ctx when.Context) []ContributedMenuItem {
	var out []ContributedMenuItem
	c.each(func(id string, cc *compiledContributions) {
		for _, it := range cc.manifest.Contributes.Menus[location] {
			if cc.holds(it.When, ctx) {
				out = append(out, ContributedMenuItem{MenuItem: it, ExtensionID: id})
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Keybindings lists bindings whose when clause holds.
func (c *Contributions) Keybindings(ctx when.Context) []ContributedKeybinding {
	var out []ContributedKeybinding
	c.each(func(id string, cc *compiledContributions) {
		for _, kb := range cc.manifest.Contributes.Keybindings {
			if cc.holds(kb.When, ctx) {
				out = append(out, ContributedKeybinding{Keybinding: kb, ExtensionID: id})
			}
		}
	})
	return out
}

// Owner returns the extension contributing a command id.
func (c *Contributions) Owner(commandID string) (string, bool) {
	owner := ""
	c.each(func(id string, cc *compiledContributions) {
		if owner != "" {
			return
		}
		for _, cmd := range cc.manifest.Contributes.Commands {
			if cmd.Command == commandID {
				owner = id
				return
			}
		}
	})
	return owner, owner != ""
}

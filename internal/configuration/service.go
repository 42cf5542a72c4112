// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package configuration holds the host's settings. Extensions contribute
// settings with defaults and schemas; users and extensions override them.
// Every change is announced on the event bus under the configuration topic
// of the changed key.
package configuration

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/quayside/quayside/internal/bus"
)

// Error codes for configuration operations.
const (
	CodeInvalidProperty = "CONFIG_INVALID_PROPERTY"
	CodeInvalidValue    = "CONFIG_INVALID_VALUE"
	CodeOwned           = "CONFIG_SECTION_OWNED"
	CodeConflict        = "CONFIG_CONFLICT"
)

// ChangeEvent is the payload emitted when a setting changes.
type ChangeEvent struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Previous any    `json:"previous,omitempty"`
	Source   string `json:"source,omitempty"`
}

// AffectsConfiguration reports whether the change touches section.
func (e ChangeEvent) AffectsConfiguration(section string) bool {
	return bus.SectionMatches(section, e.Key)
}

type declared struct {
	owner    string
	property Property
	schema   *jschema.Schema
}

// Service is the in-memory settings bag.
type Service struct {
	mu       sync.RWMutex
	values   map[string]any
	declared map[string]declared
	bus      *bus.Bus
}

// NewService creates a Service seeded with user overrides. Overrides may be
// flat dotted keys or nested maps; both are flattened.
func NewService(b *bus.Bus, overrides map[string]any) *Service {
	values := make(map[string]any)
	flatten("", overrides, values)
	return &Service{
		values:   values,
		declared: make(map[string]declared),
		bus:      b,
	}
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Declare registers the settings an extension contributes. Keys already
// declared by a different owner are rejected and nothing is registered.
// Existing overrides that violate the new schema are dropped.
func (s *Service) Declare(owner string, props map[string]Property) error {
	compiled := make(map[string]declared, len(props))
	for key, p := range props {
		sch, err := p.Compile(key)
		if err != nil {
			return oops.With("extension", owner).Wrap(err)
		}
		compiled[key] = declared{owner: owner, property: p, schema: sch}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range compiled {
		if d, ok := s.declared[key]; ok && d.owner != owner {
			return oops.Code(CodeConflict).
				With("key", key).
				With("extension", owner).
				With("owner", d.owner).
				Errorf("setting %s is already contributed by %s", key, d.owner)
		}
	}
	for key, d := range compiled {
		s.declared[key] = d
		if v, ok := s.values[key]; ok {
			if err := validate(d.schema, v); err != nil {
				slog.Warn("dropping setting that violates its contributed schema",
					"key", key, "extension", owner, "error", err)
				delete(s.values, key)
			}
		}
	}
	return nil
}

// Withdraw removes owner's declarations. User-set values are kept.
func (s *Service) Withdraw(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, d := range s.declared {
		if d.owner == owner {
			delete(s.declared, key)
		}
	}
}

// Get returns the effective value of key: an override, else the declared
// default.
func (s *Service) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(key)
}

func (s *Service) get(key string) (any, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	if d, ok := s.declared[key]; ok && d.property.Default != nil {
		return d.property.Default, true
	}
	return nil, false
}

// Declared returns the property contributed under key.
func (s *Service) Declared(key string) (Property, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.declared[key]
	return d.property, d.owner, ok
}

// Update sets key on behalf of source, or resets it to its default when value
// is nil. A declared key's section (everything before its last dot) belongs
// to the declaring extension: other extensions may not write any key in it.
// The host (empty source) may write anything.
func (s *Service) Update(source, key string, value any) error {
	if key == "" {
		return oops.Code(CodeInvalidValue).Errorf("setting key is empty")
	}

	s.mu.Lock()
	d, isDeclared := s.declared[key]
	if source != "" {
		if owner, ok := s.foreignOwnerLocked(source, key); ok {
			s.mu.Unlock()
			return oops.Code(CodeOwned).
				With("key", key).
				With("extension", source).
				With("owner", owner).
				Errorf("setting %s belongs to %s", key, owner)
		}
	}
	if isDeclared && value != nil {
		if err := validate(d.schema, value); err != nil {
			s.mu.Unlock()
			return oops.Code(CodeInvalidValue).
				With("key", key).
				Wrapf(err, "invalid value for %s", key)
		}
	}

	previous, _ := s.get(key)
	if value == nil {
		delete(s.values, key)
	} else {
		s.values[key] = normalize(value)
	}
	current, _ := s.get(key)
	s.mu.Unlock()

	if reflect.DeepEqual(previous, current) {
		return nil
	}
	if s.bus != nil {
		s.bus.Emit(bus.ConfigurationTopic(key), ChangeEvent{
			Key:      key,
			Value:    current,
			Previous: previous,
			Source:   source,
		})
	}
	return nil
}

// foreignOwnerLocked returns an extension other than source that owns key,
// either by declaring it or by declaring a key in an enclosing section.
func (s *Service) foreignOwnerLocked(source, key string) (string, bool) {
	if d, ok := s.declared[key]; ok {
		return d.owner, d.owner != source
	}
	var owners []string
	for k, d := range s.declared {
		if d.owner == source {
			continue
		}
		i := strings.LastIndex(k, ".")
		if i <= 0 {
			continue
		}
		if bus.SectionMatches(k[:i], key) {
			owners = append(owners, d.owner)
		}
	}
	if len(owners) == 0 {
		return "", false
	}
	sort.Strings(owners)
	return owners[0], true
}

// normalize stores values in their JSON shape so readers see the same types
// regardless of how a writer built the value.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// Section returns the effective values of every key at or below section,
// keyed relative to it.
func (s *Service) Section(section string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]struct{})
	for k := range s.values {
		keys[k] = struct{}{}
	}
	for k := range s.declared {
		keys[k] = struct{}{}
	}

	out := make(map[string]any)
	for k := range keys {
		if section != "" && !bus.SectionMatches(section, k) {
			continue
		}
		if v, ok := s.get(k); ok {
			out[relative(section, k)] = v
		}
	}
	return out
}

func relative(section, key string) string {
	if section == "" || section == key {
		return key
	}
	return strings.TrimPrefix(key, section+".")
}

// Keys returns every key with an effective value, sorted.
func (s *Service) Keys() []string {
	all := s.Section("")
	return sortedKeys(all)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnDidChange subscribes fn to changes at or below section. An empty section
// receives every change.
func (s *Service) OnDidChange(section string, fn func(ChangeEvent)) bus.Unsubscribe {
	return s.bus.OnPrefix(bus.ConfigurationTopic(section), func(_ string, payload any) {
		if ev, ok := payload.(ChangeEvent); ok {
			fn(ev)
		}
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Property types accepted in a configuration contribution.
var propertyTypes = map[string]bool{
	"string": true, "number": true, "integer": true,
	"boolean": true, "array": true, "object": true,
}

// Property describes one contributed setting.
type Property struct {
	Type        string   `yaml:"type" json:"type" jsonschema:"enum=string,enum=number,enum=integer,enum=boolean,enum=array,enum=object"`
	Default     any      `yaml:"default,omitempty" json:"default,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Enum        []any    `yaml:"enum,omitempty" json:"enum,omitempty"`
	Minimum     *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum     *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// schemaDoc renders the property as a JSON Schema document.
func (p Property) schemaDoc() map[string]any {
	doc := map[string]any{"type": p.Type}
	if len(p.Enum) > 0 {
		doc["enum"] = p.Enum
	}
	if p.Minimum != nil {
		doc["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		doc["maximum"] = *p.Maximum
	}
	if p.Pattern != "" {
		doc["pattern"] = p.Pattern
	}
	return doc
}

// Compile checks the property and builds its value validator. When the
// property has a default, the default must satisfy the schema.
func (p Property) Compile(key string) (*jschema.Schema, error) {
	if !propertyTypes[p.Type] {
		return nil, oops.Code(CodeInvalidProperty).
			With("key", key).
			Errorf("setting %s has unknown type %q", key, p.Type)
	}

	url := "quayside:///settings/" + key + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, p.schemaDoc()); err != nil {
		return nil, oops.Code(CodeInvalidProperty).With("key", key).Wrap(err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, oops.Code(CodeInvalidProperty).With("key", key).Wrap(err)
	}

	if p.Default != nil {
		if err := validate(sch, p.Default); err != nil {
			return nil, oops.Code(CodeInvalidProperty).
				With("key", key).
				Wrapf(err, "default for %s does not match its schema", key)
		}
	}
	return sch, nil
}

// validate normalizes v to JSON types before validating, so Go ints, structs
// and YAML-decoded maps are judged the same way as JSON input.
func validate(sch *jschema.Schema, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("value is not JSON-serializable: %w", err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return sch.Validate(inst)
}

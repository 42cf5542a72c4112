// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extension

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the manifest schema.
const SchemaID = "https://quayside.dev/schemas/extension.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	errSchema      error
)

// GenerateSchema renders the manifest JSON Schema from the Manifest type.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Manifest{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Quayside Extension Manifest"
	schema.Description = "Schema for extension.yaml and extension.json manifest files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("extension").Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema checks raw manifest data against the manifest schema.
// It is stricter than ParseManifest: unknown fields are rejected.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code(CodeManifestInvalid).In("extension").Errorf("manifest data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeManifestInvalid).In("extension").Wrapf(err, "invalid manifest")
	}

	sch, err := schema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSON(doc)); err != nil {
		return oops.Code(CodeManifestInvalid).In("extension").Errorf("%s", FormatSchemaError(err))
	}
	return nil
}

func schema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			errSchema = err
			return
		}
		doc, err := jschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			errSchema = oops.In("extension").Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			errSchema = oops.In("extension").Wrapf(err, "add schema resource")
			return
		}
		compiledSchema, errSchema = c.Compile(SchemaID)
		if errSchema != nil {
			errSchema = oops.In("extension").Wrapf(errSchema, "compile schema")
		}
	})
	return compiledSchema, errSchema
}

// toJSON converts a YAML document into the types the schema validator
// expects: string-keyed maps and float64 numbers.
func toJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = toJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = toJSON(e)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

// FormatSchemaError trims validator noise from a schema error.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "jsonschema validation failed with "+strconv.Quote(SchemaID)+"\n")
	return strings.TrimSpace(msg)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import (
	"encoding/json"

	"github.com/samber/oops"
	"google.golang.org/protobuf/types/known/structpb"
)

// Plain converts v to the JSON data model (nil, bool, float64, string,
// []any, map[string]any) so it can cross the channel. Structs are
// converted through their json tags.
func Plain(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, float64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, oops.In("extproto").Wrapf(err, "value of type %T cannot cross the channel", v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, oops.In("extproto").Wrapf(err, "decode plain value")
	}
	return out, nil
}

// Decode converts a plain value received from the channel into dst, the
// reverse of Plain.
func Decode(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return oops.In("extproto").Wrapf(err, "encode value")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return oops.In("extproto").Wrapf(err, "decode value into %T", dst)
	}
	return nil
}

// Encode converts an envelope to its wire form.
func Encode(env *Envelope) (*structpb.Struct, error) {
	m := map[string]any{
		"type": string(env.Type),
		"id":   float64(env.ID),
	}
	if env.ExtensionPath != "" {
		m["extensionPath"] = env.ExtensionPath
	}
	if env.Method != "" {
		m["method"] = env.Method
	}
	if len(env.Exports) > 0 {
		exports := make([]any, len(env.Exports))
		for i, e := range env.Exports {
			exports[i] = e
		}
		m["exports"] = exports
	}
	if env.Error != nil {
		m["error"] = map[string]any{"code": env.Error.Code, "message": env.Error.Message}
	}

	plain := map[string]any{
		"manifest": env.Manifest,
		"context":  env.Context,
		"value":    env.Value,
	}
	if len(env.Args) > 0 {
		plain["args"] = env.Args
	}
	for key, v := range plain {
		if v == nil {
			continue
		}
		p, err := Plain(v)
		if err != nil {
			return nil, oops.In("extproto").With("field", key).With("type", env.Type).Wrap(err)
		}
		if p != nil {
			m[key] = p
		}
	}

	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, oops.In("extproto").With("type", env.Type).Wrapf(err, "encode envelope")
	}
	return s, nil
}

// DecodeEnvelope converts the wire form back to an envelope.
func DecodeEnvelope(s *structpb.Struct) (*Envelope, error) {
	if s == nil {
		return nil, oops.In("extproto").Errorf("empty envelope")
	}
	m := s.AsMap()

	typ, _ := m["type"].(string)
	if typ == "" {
		return nil, oops.In("extproto").Errorf("envelope has no type")
	}
	env := &Envelope{Type: Type(typ)}
	if id, ok := m["id"].(float64); ok && id > 0 {
		env.ID = uint64(id)
	}
	env.ExtensionPath, _ = m["extensionPath"].(string)
	env.Method, _ = m["method"].(string)
	env.Manifest, _ = m["manifest"].(map[string]any)
	env.Context, _ = m["context"].(map[string]any)
	env.Args, _ = m["args"].([]any)
	env.Value = m["value"]
	if exports, ok := m["exports"].([]any); ok {
		for _, e := range exports {
			if id, ok := e.(string); ok {
				env.Exports = append(env.Exports, id)
			}
		}
	}
	if e, ok := m["error"].(map[string]any); ok {
		env.Error = &Error{}
		env.Error.Code, _ = e["code"].(string)
		env.Error.Message, _ = e["message"].(string)
	}
	return env, nil
}

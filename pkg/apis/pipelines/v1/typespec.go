/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeSpec is the type annotation of a component input, output or artifact.
// The JSON form is either a plain type name string or a single-entry object
// mapping the type name to a properties object.
type TypeSpec json.RawMessage

func (t TypeSpec) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return t, nil
}

func (t *TypeSpec) UnmarshalJSON(data []byte) error {
	*t = append((*t)[0:0], data...)
	return nil
}

func (t TypeSpec) IsEmpty() bool {
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// Split breaks a type spec into its type name and optional properties object.
func (t TypeSpec) Split() (string, json.RawMessage, error) {
	if t.IsEmpty() {
		return "", nil, nil
	}
	trimmed := bytes.TrimSpace(t)
	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return "", nil, err
		}
		return name, nil, nil
	}
	if trimmed[0] == '{' {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return "", nil, err
		}
		if len(entries) == 1 {
			for name, properties := range entries {
				props := bytes.TrimSpace(properties)
				if len(props) > 0 && props[0] == '{' {
					return name, properties, nil
				}
			}
		}
	}
	return "", nil, fmt.Errorf("unsupported kind of type spec: %s", string(t))
}

// NewTypeSpecFromName builds a plain named type spec.
func NewTypeSpecFromName(name string) TypeSpec {
	data, _ := json.Marshal(name)
	return TypeSpec(data)
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"encoding/json"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// ComponentSpec declares the interface and implementation of a task.
type ComponentSpec struct {
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	Metadata       *MetadataSpec   `json:"metadata,omitempty"`
	Inputs         []InputSpec     `json:"inputs,omitempty"`
	Outputs        []OutputSpec    `json:"outputs,omitempty"`
	Implementation *Implementation `json:"implementation,omitempty"`
}

type MetadataSpec struct {
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

type InputSpec struct {
	Name        string   `json:"name"`
	Type        TypeSpec `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Default     *string  `json:"default,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
}

type OutputSpec struct {
	Name        string   `json:"name"`
	Type        TypeSpec `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Implementation holds exactly one of the implementation variants.
type Implementation struct {
	Container *ContainerSpec `json:"container,omitempty"`
	Graph     *GraphSpec     `json:"graph,omitempty"`
}

// ContainerSpec describes the command line of a containerized component.
type ContainerSpec struct {
	Image   string                    `json:"image"`
	Command []CommandLineArg          `json:"command,omitempty"`
	Args    []CommandLineArg          `json:"args,omitempty"`
	Env     map[string]CommandLineArg `json:"env,omitempty"`
}

// GraphSpec composes child tasks and exposes selected task outputs as the
// graph's own outputs. Task declaration order is preserved.
type GraphSpec struct {
	Tasks        TaskMap                      `json:"tasks"`
	OutputValues map[string]*TaskOutputSource `json:"outputValues,omitempty"`
}

// ComponentReference points at a component, usually with the spec inlined.
type ComponentReference struct {
	Name   string         `json:"name,omitempty"`
	Digest string         `json:"digest,omitempty"`
	Tag    string         `json:"tag,omitempty"`
	URL    string         `json:"url,omitempty"`
	Spec   *ComponentSpec `json:"spec,omitempty"`
	Text   string         `json:"text,omitempty"`
}

func (s *ComponentSpec) Validate() error {
	if s.Implementation == nil {
		return errors.NewValidationErrorf("Component %q has no implementation.", s.Name)
	}
	if (s.Implementation.Container == nil) == (s.Implementation.Graph == nil) {
		return errors.NewValidationErrorf(
			"Component %q implementation must be either a container or a graph.", s.Name)
	}
	seenInputs := map[string]bool{}
	for _, input := range s.Inputs {
		if input.Name == "" {
			return errors.NewValidationErrorf("Component %q has an input without a name.", s.Name)
		}
		if seenInputs[input.Name] {
			return errors.NewValidationErrorf("Component %q declares input %q twice.", s.Name, input.Name)
		}
		seenInputs[input.Name] = true
	}
	seenOutputs := map[string]bool{}
	for _, output := range s.Outputs {
		if output.Name == "" {
			return errors.NewValidationErrorf("Component %q has an output without a name.", s.Name)
		}
		if seenOutputs[output.Name] {
			return errors.NewValidationErrorf("Component %q declares output %q twice.", s.Name, output.Name)
		}
		seenOutputs[output.Name] = true
	}
	return nil
}

// InputByName returns the declared input spec or nil.
func (s *ComponentSpec) InputByName(name string) *InputSpec {
	for i := range s.Inputs {
		if s.Inputs[i].Name == name {
			return &s.Inputs[i]
		}
	}
	return nil
}

// OutputByName returns the declared output spec or nil.
func (s *ComponentSpec) OutputByName(name string) *OutputSpec {
	for i := range s.Outputs {
		if s.Outputs[i].Name == name {
			return &s.Outputs[i]
		}
	}
	return nil
}

// LoadComponentText parses a component spec from YAML or JSON text.
func LoadComponentText(text []byte) (*ComponentSpec, error) {
	jsonBytes, err := sigsyaml.YAMLToJSON(text)
	if err != nil {
		return nil, errors.NewValidationErrorf("Component text is not valid YAML or JSON: %v", err)
	}
	var spec ComponentSpec
	if err := json.Unmarshal(jsonBytes, &spec); err != nil {
		return nil, errors.NewValidationErrorf("Component text does not parse: %v", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

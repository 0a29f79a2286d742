/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"encoding/json"
	"fmt"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// TaskSpec is the per-task user input: which component to run and how its
// inputs are fed.
type TaskSpec struct {
	ComponentRef ComponentReference      `json:"componentRef"`
	Arguments    map[string]TaskArgument `json:"arguments,omitempty"`
	Annotations  map[string]interface{}  `json:"annotations,omitempty"`
}

// GraphInputSource feeds a task input from an input of the enclosing graph.
type GraphInputSource struct {
	InputName string   `json:"inputName"`
	Type      TypeSpec `json:"type,omitempty"`
}

// TaskOutputSource feeds a task input from an output of a sibling task.
type TaskOutputSource struct {
	TaskId     string   `json:"taskId"`
	OutputName string   `json:"outputName"`
	Type       TypeSpec `json:"type,omitempty"`
}

// TaskArgument is one of: a constant string, a graph input reference or a
// sibling task output reference. The JSON form of the references is a
// singleton object keyed by the variant name.
type TaskArgument struct {
	Constant   *string
	GraphInput *GraphInputSource
	TaskOutput *TaskOutputSource
}

func NewConstantArgument(value string) TaskArgument {
	return TaskArgument{Constant: &value}
}

func NewGraphInputArgument(inputName string) TaskArgument {
	return TaskArgument{GraphInput: &GraphInputSource{InputName: inputName}}
}

func NewTaskOutputArgument(taskId, outputName string) TaskArgument {
	return TaskArgument{TaskOutput: &TaskOutputSource{TaskId: taskId, OutputName: outputName}}
}

func (a TaskArgument) MarshalJSON() ([]byte, error) {
	switch {
	case a.Constant != nil:
		return json.Marshal(*a.Constant)
	case a.GraphInput != nil:
		return json.Marshal(map[string]*GraphInputSource{"graphInput": a.GraphInput})
	case a.TaskOutput != nil:
		return json.Marshal(map[string]*TaskOutputSource{"taskOutput": a.TaskOutput})
	}
	return nil, fmt.Errorf("task argument has no value")
}

func (a *TaskArgument) UnmarshalJSON(data []byte) error {
	*a = TaskArgument{}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		a.Constant = &value
		return nil
	}
	var variants struct {
		GraphInput *GraphInputSource `json:"graphInput"`
		TaskOutput *TaskOutputSource `json:"taskOutput"`
	}
	if err := json.Unmarshal(data, &variants); err != nil {
		return err
	}
	if variants.GraphInput != nil && variants.TaskOutput != nil {
		return fmt.Errorf("task argument cannot be both graphInput and taskOutput")
	}
	if variants.GraphInput == nil && variants.TaskOutput == nil {
		return fmt.Errorf("task argument must be a constant string, graphInput or taskOutput")
	}
	a.GraphInput = variants.GraphInput
	a.TaskOutput = variants.TaskOutput
	return nil
}

func (t *TaskSpec) Validate() error {
	if t.ComponentRef.Spec == nil {
		return errors.NewValidationError("Task has no component spec. Component references must be resolved before submission.")
	}
	if err := t.ComponentRef.Spec.Validate(); err != nil {
		return err
	}
	if impl := t.ComponentRef.Spec.Implementation; impl.Graph != nil {
		for _, taskId := range impl.Graph.Tasks.Ids() {
			childTask, _ := impl.Graph.Tasks.Get(taskId)
			if err := childTask.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

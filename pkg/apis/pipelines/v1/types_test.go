/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineJSON = `{
  "componentRef": {
    "spec": {
      "name": "Pipeline",
      "inputs": [{"name": "threshold", "default": "0.5", "optional": true}],
      "implementation": {
        "graph": {
          "tasks": {
            "zeta": {
              "componentRef": {"spec": {
                "name": "Producer",
                "outputs": [{"name": "data"}],
                "implementation": {"container": {"image": "busybox", "command": ["produce", {"outputPath": "data"}]}}
              }},
              "arguments": {}
            },
            "alpha": {
              "componentRef": {"spec": {
                "name": "Consumer",
                "inputs": [{"name": "data"}, {"name": "threshold", "optional": true}],
                "implementation": {"container": {"image": "busybox", "command": ["consume", {"inputPath": "data"}, {"if": {"cond": {"isPresent": "threshold"}, "then": [{"inputValue": "threshold"}], "else": ["none"]}}]}}
              }},
              "arguments": {
                "data": {"taskOutput": {"taskId": "zeta", "outputName": "data"}},
                "threshold": {"graphInput": {"inputName": "threshold"}}
              }
            }
          },
          "outputValues": {"result": {"taskOutput": {"taskId": "alpha", "outputName": "out"}}}
        }
      }
    }
  },
  "arguments": {"threshold": "0.7"}
}`

func TestTaskSpecParsing(t *testing.T) {
	var task TaskSpec
	require.NoError(t, json.Unmarshal([]byte(pipelineJSON), &task))
	require.NotNil(t, task.ComponentRef.Spec)

	graph := task.ComponentRef.Spec.Implementation.Graph
	require.NotNil(t, graph)
	assert.Equal(t, []string{"zeta", "alpha"}, graph.Tasks.Ids())

	alpha, ok := graph.Tasks.Get("alpha")
	require.True(t, ok)
	dataArg := alpha.Arguments["data"]
	require.NotNil(t, dataArg.TaskOutput)
	assert.Equal(t, "zeta", dataArg.TaskOutput.TaskId)
	assert.Equal(t, "data", dataArg.TaskOutput.OutputName)

	thresholdArg := alpha.Arguments["threshold"]
	require.NotNil(t, thresholdArg.GraphInput)
	assert.Equal(t, "threshold", thresholdArg.GraphInput.InputName)

	rootArg := task.Arguments["threshold"]
	require.NotNil(t, rootArg.Constant)
	assert.Equal(t, "0.7", *rootArg.Constant)

	out := graph.OutputValues["result"]
	require.NotNil(t, out)
	assert.Equal(t, "alpha", out.TaskId)
}

func TestTaskMapOrderSurvivesRoundTrip(t *testing.T) {
	var task TaskSpec
	require.NoError(t, json.Unmarshal([]byte(pipelineJSON), &task))

	data, err := json.Marshal(&task)
	require.NoError(t, err)

	var again TaskSpec
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, []string{"zeta", "alpha"},
		again.ComponentRef.Spec.Implementation.Graph.Tasks.Ids())
}

func TestTaskArgumentEncoding(t *testing.T) {
	cases := []struct {
		name string
		arg  TaskArgument
		want string
	}{
		{"constant", NewConstantArgument("abc"), `"abc"`},
		{"graph input", NewGraphInputArgument("x"), `{"graphInput":{"inputName":"x"}}`},
		{"task output", NewTaskOutputArgument("t1", "out"), `{"taskOutput":{"taskId":"t1","outputName":"out"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.arg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))

			var decoded TaskArgument
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tc.arg, decoded)
		})
	}
}

func TestTaskArgumentRejectsUnknownVariant(t *testing.T) {
	var arg TaskArgument
	err := json.Unmarshal([]byte(`{"mystery": {}}`), &arg)
	assert.Error(t, err)
}

func TestCommandLinePlaceholders(t *testing.T) {
	raw := `["run", {"inputValue": "a"}, {"inputPath": "b"}, {"outputPath": "c"},
		{"concat": ["--x=", {"inputValue": "a"}]},
		{"if": {"cond": {"isPresent": "a"}, "then": ["--a"], "else": []}}]`
	var args []CommandLineArg
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	require.Len(t, args, 6)
	assert.Equal(t, "run", *args[0].Constant)
	assert.Equal(t, "a", *args[1].InputValue)
	assert.Equal(t, "b", *args[2].InputPath)
	assert.Equal(t, "c", *args[3].OutputPath)
	require.Len(t, args[4].Concat, 2)
	require.NotNil(t, args[5].If)
	assert.Equal(t, "a", *args[5].If.Cond.IsPresent)
}

func TestTypeSpecSplit(t *testing.T) {
	name, props, err := TypeSpec(nil).Split()
	assert.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Nil(t, props)

	name, props, err = NewTypeSpecFromName("String").Split()
	assert.NoError(t, err)
	assert.Equal(t, "String", name)
	assert.Nil(t, props)

	name, props, err = TypeSpec(`{"Dataset": {"format": "csv"}}`).Split()
	assert.NoError(t, err)
	assert.Equal(t, "Dataset", name)
	assert.JSONEq(t, `{"format": "csv"}`, string(props))

	_, _, err = TypeSpec(`{"A": 1}`).Split()
	assert.Error(t, err)
	_, _, err = TypeSpec(`{"A": {}, "B": {}}`).Split()
	assert.Error(t, err)
}

func TestComponentSpecValidate(t *testing.T) {
	spec := &ComponentSpec{Name: "Both"}
	assert.Error(t, spec.Validate())

	spec.Implementation = &Implementation{
		Container: &ContainerSpec{Image: "busybox"},
		Graph:     &GraphSpec{},
	}
	assert.Error(t, spec.Validate())

	spec.Implementation.Graph = nil
	assert.NoError(t, spec.Validate())

	spec.Inputs = []InputSpec{{Name: "a"}, {Name: "a"}}
	assert.Error(t, spec.Validate())
}

func TestLoadComponentText(t *testing.T) {
	yamlText := `
name: Trainer
inputs:
- {name: data}
outputs:
- {name: model}
implementation:
  container:
    image: trainer:latest
    command: [train, {inputPath: data}, {outputPath: model}]
`
	spec, err := LoadComponentText([]byte(yamlText))
	require.NoError(t, err)
	assert.Equal(t, "Trainer", spec.Name)
	require.NotNil(t, spec.Implementation.Container)
	assert.Equal(t, "trainer:latest", spec.Implementation.Container.Image)
	require.Len(t, spec.Implementation.Container.Command, 3)
}

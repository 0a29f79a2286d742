/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/fake"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

func producerComponent() *v1.ComponentSpec {
	return &v1.ComponentSpec{
		Name:    "Producer",
		Outputs: []v1.OutputSpec{{Name: "result"}},
		Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
			Image:   "alpine",
			Command: []v1.CommandLineArg{v1.NewConstantArg("produce"), v1.NewOutputPathArg("result")},
		}},
	}
}

func consumerComponent() *v1.ComponentSpec {
	return &v1.ComponentSpec{
		Name:   "Consumer",
		Inputs: []v1.InputSpec{{Name: "value"}},
		Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
			Image:   "alpine",
			Command: []v1.CommandLineArg{v1.NewConstantArg("consume"), v1.NewInputPathArg("value")},
		}},
	}
}

func graphTask(tasks map[string]*v1.TaskSpec, order []string) *v1.TaskSpec {
	taskMap := v1.NewTaskMap()
	for _, taskId := range order {
		taskMap.Set(taskId, tasks[taskId])
	}
	return &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: &v1.ComponentSpec{
			Name:           "Pipeline",
			Implementation: &v1.Implementation{Graph: &v1.GraphSpec{Tasks: taskMap}},
		}},
	}
}

func statusOf(t *testing.T, db *fake.Client, executionId int64) model.ContainerExecutionStatus {
	t.Helper()
	node, err := db.GetExecutionNode(context.Background(), executionId)
	require.NoError(t, err)
	require.NotNil(t, node)
	require.NotNil(t, node.ContainerExecutionStatus)
	return *node.ContainerExecutionStatus
}

func TestCompileLinearPipeline(t *testing.T) {
	db := fake.NewClient()
	rootTask := graphTask(map[string]*v1.TaskSpec{
		"produce": {ComponentRef: v1.ComponentReference{Spec: producerComponent()}},
		"consume": {
			ComponentRef: v1.ComponentReference{Spec: consumerComponent()},
			Arguments: map[string]v1.TaskArgument{
				"value": v1.NewTaskOutputArgument("produce", "result"),
			},
		},
	}, []string{"produce", "consume"})

	var rootNode *model.ExecutionNode
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		var err error
		rootNode, err = Compile(context.Background(), tx, rootTask)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, rootNode)
	// The graph node itself carries no container status.
	assert.Nil(t, rootNode.ContainerExecutionStatus)

	var producerNode, consumerNode *model.ExecutionNode
	for _, node := range db.ExecutionNodes() {
		if node.TaskIdInParentExecution == nil {
			continue
		}
		switch *node.TaskIdInParentExecution {
		case "produce":
			producerNode = node
		case "consume":
			consumerNode = node
		}
	}
	require.NotNil(t, producerNode)
	require.NotNil(t, consumerNode)
	assert.Equal(t, model.StatusQueued, statusOf(t, db, producerNode.Id))
	assert.Equal(t, model.StatusWaitingForUpstream, statusOf(t, db, consumerNode.Id))

	// Both children close over the root graph node.
	links := db.AncestorLinks()
	assert.Contains(t, links, [2]int64{producerNode.Id, rootNode.Id})
	assert.Contains(t, links, [2]int64{consumerNode.Id, rootNode.Id})

	// The consumer's input is the producer's output artifact node.
	producerOutputs, err := db.GetExecutionOutputArtifacts(context.Background(), producerNode.Id)
	require.NoError(t, err)
	require.Len(t, producerOutputs, 1)
	consumerInputs, err := db.GetExecutionInputArtifacts(context.Background(), consumerNode.Id)
	require.NoError(t, err)
	require.Len(t, consumerInputs, 1)
	assert.Equal(t, producerOutputs[0].Node.Id, consumerInputs[0].Node.Id)
	assert.Nil(t, consumerInputs[0].Data)
}

func TestCompileRejectsCycleWithoutPersistingRows(t *testing.T) {
	db := fake.NewClient()
	rootTask := graphTask(map[string]*v1.TaskSpec{
		"first": {
			ComponentRef: v1.ComponentReference{Spec: &v1.ComponentSpec{
				Name:    "First",
				Inputs:  []v1.InputSpec{{Name: "value"}},
				Outputs: []v1.OutputSpec{{Name: "result"}},
				Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
					Image: "alpine", Command: []v1.CommandLineArg{v1.NewConstantArg("run")},
				}},
			}},
			Arguments: map[string]v1.TaskArgument{
				"value": v1.NewTaskOutputArgument("second", "result"),
			},
		},
		"second": {
			ComponentRef: v1.ComponentReference{Spec: &v1.ComponentSpec{
				Name:    "Second",
				Inputs:  []v1.InputSpec{{Name: "value"}},
				Outputs: []v1.OutputSpec{{Name: "result"}},
				Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
					Image: "alpine", Command: []v1.CommandLineArg{v1.NewConstantArg("run")},
				}},
			}},
			Arguments: map[string]v1.TaskArgument{
				"value": v1.NewTaskOutputArgument("first", "result"),
			},
		},
	}, []string{"first", "second"})

	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		_, err := Compile(context.Background(), tx, rootTask)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "cyclical dependency")
	assert.Equal(t, 0, db.CountRows())
}

func TestCompileAppliesDefaultValue(t *testing.T) {
	db := fake.NewClient()
	rootTask := &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: &v1.ComponentSpec{
			Name: "Trainer",
			Inputs: []v1.InputSpec{
				{Name: "learning_rate", Default: strPtr("0.5")},
			},
			Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
				Image:   "alpine",
				Command: []v1.CommandLineArg{v1.NewConstantArg("train"), v1.NewInputValueArg("learning_rate")},
			}},
		}},
	}

	var node *model.ExecutionNode
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		var err error
		node, err = Compile(context.Background(), tx, rootTask)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, statusOf(t, db, node.Id))

	inputs, err := db.GetExecutionInputArtifacts(context.Background(), node.Id)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "learning_rate", inputs[0].InputName)
	assert.True(t, inputs[0].Node.HadDataInPast)
	require.NotNil(t, inputs[0].Data)
	assert.Equal(t, int64(3), inputs[0].Data.TotalSize)
	assert.Equal(t, "md5=d310cb367d993fb6fb584b198a2fd72c", inputs[0].Data.Hash)
	require.NotNil(t, inputs[0].Data.Value)
	assert.Equal(t, "0.5", *inputs[0].Data.Value)
}

func TestCompileRejectsMissingRequiredInput(t *testing.T) {
	db := fake.NewClient()
	rootTask := &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: consumerComponent()},
	}
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		_, err := Compile(context.Background(), tx, rootTask)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 0, db.CountRows())
}

func TestCompileRejectsReferenceArgumentOnRoot(t *testing.T) {
	db := fake.NewClient()
	rootTask := &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: consumerComponent()},
		Arguments: map[string]v1.TaskArgument{
			"value": v1.NewGraphInputArgument("something"),
		},
	}
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		_, err := Compile(context.Background(), tx, rootTask)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCompileGraphOutputRelinksChildArtifact(t *testing.T) {
	db := fake.NewClient()
	rootTask := graphTask(map[string]*v1.TaskSpec{
		"produce": {ComponentRef: v1.ComponentReference{Spec: producerComponent()}},
	}, []string{"produce"})
	rootTask.ComponentRef.Spec.Outputs = []v1.OutputSpec{{Name: "final"}}
	rootTask.ComponentRef.Spec.Implementation.Graph.OutputValues = map[string]*v1.TaskOutputSource{
		"final": {TaskId: "produce", OutputName: "result"},
	}

	var rootNode *model.ExecutionNode
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		var err error
		rootNode, err = Compile(context.Background(), tx, rootTask)
		return err
	})
	require.NoError(t, err)

	graphOutputs, err := db.GetExecutionOutputArtifacts(context.Background(), rootNode.Id)
	require.NoError(t, err)
	require.Len(t, graphOutputs, 1)
	assert.Equal(t, "final", graphOutputs[0].OutputName)

	var producerNode *model.ExecutionNode
	for _, node := range db.ExecutionNodes() {
		if node.TaskIdInParentExecution != nil && *node.TaskIdInParentExecution == "produce" {
			producerNode = node
		}
	}
	require.NotNil(t, producerNode)
	producerOutputs, err := db.GetExecutionOutputArtifacts(context.Background(), producerNode.Id)
	require.NoError(t, err)
	require.Len(t, producerOutputs, 1)
	// The graph output is the same artifact node, not a copy.
	assert.Equal(t, producerOutputs[0].Node.Id, graphOutputs[0].Node.Id)
}

func TestToposortRejectsUnknownTaskReference(t *testing.T) {
	taskMap := v1.NewTaskMap()
	taskMap.Set("consume", &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: consumerComponent()},
		Arguments: map[string]v1.TaskArgument{
			"value": v1.NewTaskOutputArgument("ghost", "result"),
		},
	})
	_, err := toposortTasks(taskMap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `non-existing task "ghost"`)
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package compiler materializes a submitted task tree into the persisted DAG
// of execution nodes, artifact nodes and wiring links.
package compiler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// maxGraphDepth caps graph nesting so adversarial submissions cannot exhaust
// the stack.
const maxGraphDepth = 64

// Compile validates the root task and persists the full execution DAG within
// tx. Root arguments may only be constant strings. The returned node is the
// root of the compiled tree.
//
// Callers run this inside a transaction so a validation failure leaves no
// partial DAG behind.
func Compile(ctx context.Context, tx database.Interface, rootTask *v1.TaskSpec) (*model.ExecutionNode, error) {
	if err := rootTask.Validate(); err != nil {
		return nil, err
	}
	componentSpec := rootTask.ComponentRef.Spec
	inputArtifacts := map[string]*model.ArtifactNode{}
	for inputName, argument := range rootTask.Arguments {
		inputSpec := componentSpec.InputByName(inputName)
		if inputSpec == nil {
			return nil, errors.NewValidationErrorf(
				"Argument given for non-existing input %q.", inputName)
		}
		if argument.Constant == nil {
			return nil, errors.NewValidationErrorf(
				"Root task arguments can only be constants, but input %q got a reference argument.", inputName)
		}
		artifactNode, err := createConstantArtifact(ctx, tx, *argument.Constant, inputSpec.Type)
		if err != nil {
			return nil, err
		}
		inputArtifacts[inputName] = artifactNode
	}
	node, _, err := compileTask(ctx, tx, rootTask, inputArtifacts, nil, 0)
	return node, err
}

// compileTask creates one execution node with its closure links, inputs and
// outputs, recursing into graph children in topological order. It returns the
// created node and its output artifact nodes by output name.
func compileTask(
	ctx context.Context,
	tx database.Interface,
	taskSpec *v1.TaskSpec,
	inputArtifacts map[string]*model.ArtifactNode,
	ancestors []*model.ExecutionNode,
	depth int,
) (*model.ExecutionNode, map[string]*model.ArtifactNode, error) {
	if depth > maxGraphDepth {
		return nil, nil, errors.NewValidationErrorf(
			"Pipeline graph nesting exceeds the maximum depth of %d.", maxGraphDepth)
	}
	componentSpec := taskSpec.ComponentRef.Spec
	if componentSpec == nil {
		return nil, nil, errors.NewValidationError("Task has no component spec.")
	}
	implementation := componentSpec.Implementation
	if implementation == nil {
		return nil, nil, errors.NewValidationErrorf("Component %q has no implementation.", componentSpec.Name)
	}

	frozenTaskSpec, err := json.Marshal(taskSpec)
	if err != nil {
		return nil, nil, errors.NewValidationErrorf("Task spec does not serialize: %v", err)
	}
	node := &model.ExecutionNode{TaskSpec: frozenTaskSpec}
	if err := tx.CreateExecutionNode(ctx, node); err != nil {
		return nil, nil, errors.NewDatabaseError("CreateExecutionNode", err)
	}
	for _, ancestor := range ancestors {
		link := &model.ExecutionToAncestorExecutionLink{
			ExecutionId:         node.Id,
			AncestorExecutionId: ancestor.Id,
		}
		if err := tx.CreateExecutionToAncestorExecutionLink(ctx, link); err != nil {
			return nil, nil, errors.NewDatabaseError("CreateExecutionToAncestorExecutionLink", err)
		}
	}

	// Resolve declared inputs: fall back to defaults, fail on unsatisfiable
	// required inputs, link everything that is connected.
	connectedInputs := map[string]*model.ArtifactNode{}
	for _, inputSpec := range componentSpec.Inputs {
		inputArtifact := inputArtifacts[inputSpec.Name]
		if inputArtifact == nil && !inputSpec.Optional {
			if inputSpec.Default == nil {
				return nil, nil, errors.NewValidationErrorf(
					"Task has a required input %q, but no upstream artifact and no default value.", inputSpec.Name)
			}
			inputArtifact, err = createConstantArtifact(ctx, tx, *inputSpec.Default, inputSpec.Type)
			if err != nil {
				return nil, nil, err
			}
		}
		if inputArtifact == nil {
			continue
		}
		connectedInputs[inputSpec.Name] = inputArtifact
		link := &model.InputArtifactLink{
			ExecutionId:    node.Id,
			InputName:      inputSpec.Name,
			ArtifactNodeId: inputArtifact.Id,
		}
		if err := tx.CreateInputArtifactLink(ctx, link); err != nil {
			return nil, nil, errors.NewDatabaseError("CreateInputArtifactLink", err)
		}
	}

	switch {
	case implementation.Container != nil:
		outputs, err := compileContainerOutputs(ctx, tx, node, componentSpec)
		if err != nil {
			return nil, nil, err
		}
		status := model.StatusQueued
		for _, inputArtifact := range connectedInputs {
			if inputArtifact.ArtifactDataId == nil {
				status = model.StatusWaitingForUpstream
				break
			}
		}
		node.ContainerExecutionStatus = model.StatusPtr(status)
		if err := tx.UpdateExecutionNode(ctx, node); err != nil {
			return nil, nil, errors.NewDatabaseError("UpdateExecutionNode", err)
		}
		return node, outputs, nil

	case implementation.Graph != nil:
		outputs, err := compileGraphChildren(ctx, tx, node, implementation.Graph, connectedInputs, ancestors, depth)
		if err != nil {
			return nil, nil, err
		}
		return node, outputs, nil
	}
	return nil, nil, errors.NewValidationErrorf("Component %q has an unknown implementation kind.", componentSpec.Name)
}

func compileContainerOutputs(
	ctx context.Context,
	tx database.Interface,
	node *model.ExecutionNode,
	componentSpec *v1.ComponentSpec,
) (map[string]*model.ArtifactNode, error) {
	outputs := map[string]*model.ArtifactNode{}
	for _, outputSpec := range componentSpec.Outputs {
		typeName, typeProperties, err := outputSpec.Type.Split()
		if err != nil {
			return nil, errors.NewValidationErrorf("Output %q has a bad type spec: %v", outputSpec.Name, err)
		}
		artifactNode := &model.ArtifactNode{
			ProducerExecutionId: &node.Id,
			ProducerOutputName:  strPtr(outputSpec.Name),
			TypeProperties:      typeProperties,
		}
		if typeName != "" {
			artifactNode.TypeName = &typeName
		}
		if err := tx.CreateArtifactNode(ctx, artifactNode); err != nil {
			return nil, errors.NewDatabaseError("CreateArtifactNode", err)
		}
		link := &model.OutputArtifactLink{
			ExecutionId:    node.Id,
			OutputName:     outputSpec.Name,
			ArtifactNodeId: artifactNode.Id,
		}
		if err := tx.CreateOutputArtifactLink(ctx, link); err != nil {
			return nil, errors.NewDatabaseError("CreateOutputArtifactLink", err)
		}
		outputs[outputSpec.Name] = artifactNode
	}
	return outputs, nil
}

func compileGraphChildren(
	ctx context.Context,
	tx database.Interface,
	graphNode *model.ExecutionNode,
	graphSpec *v1.GraphSpec,
	graphInputs map[string]*model.ArtifactNode,
	ancestors []*model.ExecutionNode,
	depth int,
) (map[string]*model.ArtifactNode, error) {
	sortedTaskIds, err := toposortTasks(graphSpec.Tasks)
	if err != nil {
		return nil, err
	}
	childAncestors := append(append([]*model.ExecutionNode{}, ancestors...), graphNode)
	taskOutputs := map[string]map[string]*model.ArtifactNode{}
	for _, childTaskId := range sortedTaskIds {
		childTask, _ := graphSpec.Tasks.Get(childTaskId)
		childComponentSpec := childTask.ComponentRef.Spec
		if childComponentSpec == nil {
			return nil, errors.NewValidationErrorf("Task %q has no component spec.", childTaskId)
		}
		childInputs, err := resolveChildInputs(ctx, tx, childTaskId, childTask, childComponentSpec, graphInputs, taskOutputs)
		if err != nil {
			return nil, err
		}
		childNode, childOutputs, err := compileTask(ctx, tx, childTask, childInputs, childAncestors, depth+1)
		if err != nil {
			return nil, err
		}
		childNode.ParentExecutionId = &graphNode.Id
		childNode.TaskIdInParentExecution = strPtr(childTaskId)
		if err := tx.UpdateExecutionNode(ctx, childNode); err != nil {
			return nil, errors.NewDatabaseError("UpdateExecutionNode", err)
		}
		taskOutputs[childTaskId] = childOutputs
	}

	// Graph outputs re-link the mapped child output artifacts as outputs of
	// the graph node itself.
	outputs := map[string]*model.ArtifactNode{}
	for outputName, outputSource := range graphSpec.OutputValues {
		if outputSource == nil {
			return nil, errors.NewValidationErrorf(
				"Graph output %q has no source task output.", outputName)
		}
		sourceArtifact, err := lookupTaskOutput(taskOutputs, outputSource.TaskId, outputSource.OutputName)
		if err != nil {
			return nil, err
		}
		link := &model.OutputArtifactLink{
			ExecutionId:    graphNode.Id,
			OutputName:     outputName,
			ArtifactNodeId: sourceArtifact.Id,
		}
		if err := tx.CreateOutputArtifactLink(ctx, link); err != nil {
			return nil, errors.NewDatabaseError("CreateOutputArtifactLink", err)
		}
		outputs[outputName] = sourceArtifact
	}
	return outputs, nil
}

func resolveChildInputs(
	ctx context.Context,
	tx database.Interface,
	childTaskId string,
	childTask *v1.TaskSpec,
	childComponentSpec *v1.ComponentSpec,
	graphInputs map[string]*model.ArtifactNode,
	taskOutputs map[string]map[string]*model.ArtifactNode,
) (map[string]*model.ArtifactNode, error) {
	childInputs := map[string]*model.ArtifactNode{}
	for _, inputSpec := range childComponentSpec.Inputs {
		argument, hasArgument := childTask.Arguments[inputSpec.Name]
		if !hasArgument {
			// compileTask applies the default or rejects missing required
			// inputs.
			continue
		}
		switch {
		case argument.Constant != nil:
			artifactNode, err := createConstantArtifact(ctx, tx, *argument.Constant, inputSpec.Type)
			if err != nil {
				return nil, err
			}
			childInputs[inputSpec.Name] = artifactNode
		case argument.GraphInput != nil:
			upstreamArtifact := graphInputs[argument.GraphInput.InputName]
			if upstreamArtifact == nil {
				// The enclosing graph's input is unconnected. Permitted when
				// the consumer can cope; the default is applied downstream.
				if inputSpec.Optional || inputSpec.Default != nil {
					continue
				}
				return nil, errors.NewValidationErrorf(
					"Task %q requires input %q, but the graph input %q it references is unconnected.",
					childTaskId, inputSpec.Name, argument.GraphInput.InputName)
			}
			childInputs[inputSpec.Name] = upstreamArtifact
		case argument.TaskOutput != nil:
			sourceArtifact, err := lookupTaskOutput(taskOutputs, argument.TaskOutput.TaskId, argument.TaskOutput.OutputName)
			if err != nil {
				return nil, err
			}
			childInputs[inputSpec.Name] = sourceArtifact
		default:
			return nil, errors.NewValidationErrorf(
				"Task %q input %q has an unknown argument kind.", childTaskId, inputSpec.Name)
		}
	}
	for inputName := range childTask.Arguments {
		if childComponentSpec.InputByName(inputName) == nil {
			return nil, errors.NewValidationErrorf(
				"Task %q has an argument for non-existing input %q.", childTaskId, inputName)
		}
	}
	return childInputs, nil
}

func lookupTaskOutput(
	taskOutputs map[string]map[string]*model.ArtifactNode,
	taskId, outputName string,
) (*model.ArtifactNode, error) {
	outputs, ok := taskOutputs[taskId]
	if !ok {
		return nil, errors.NewValidationErrorf("Argument references non-existing task %q.", taskId)
	}
	artifact, ok := outputs[outputName]
	if !ok {
		return nil, errors.NewValidationErrorf(
			"Task %q has no output %q.", taskId, outputName)
	}
	return artifact, nil
}

// createConstantArtifact materializes a constant string as an artifact node
// with inline data.
func createConstantArtifact(ctx context.Context, tx database.Interface, value string, typeSpec v1.TypeSpec) (*model.ArtifactNode, error) {
	typeName, typeProperties, err := typeSpec.Split()
	if err != nil {
		return nil, errors.NewValidationErrorf("Constant input has a bad type spec: %v", err)
	}
	digest := md5.Sum([]byte(value))
	data := &model.ArtifactData{
		TotalSize: int64(len(value)),
		IsDir:     false,
		Hash:      "md5=" + hex.EncodeToString(digest[:]),
		Value:     &value,
	}
	if err := tx.CreateArtifactData(ctx, data); err != nil {
		return nil, errors.NewDatabaseError("CreateArtifactData", err)
	}
	node := &model.ArtifactNode{
		TypeProperties: typeProperties,
		ArtifactDataId: &data.Id,
		HadDataInPast:  true,
	}
	if typeName != "" {
		node.TypeName = &typeName
	}
	if err := tx.CreateArtifactNode(ctx, node); err != nil {
		return nil, errors.NewDatabaseError("CreateArtifactNode", err)
	}
	return node, nil
}

func strPtr(s string) *string {
	return &s
}

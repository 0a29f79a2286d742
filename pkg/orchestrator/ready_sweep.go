/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"k8s.io/klog/v2"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/cache"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/metrics"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

// SweepReadyNode claims one node from the ready queue and settles it: back to
// WAITING_FOR_UPSTREAM when an input is still missing, SUCCEEDED through
// cache adoption, PENDING after a launch, or SYSTEM_ERROR when the launch
// fails. Returns false when the queue is empty.
func (o *Orchestrator) SweepReadyNode(ctx context.Context) (bool, error) {
	processed := false
	err := o.db.Transaction(ctx, func(tx database.Interface) error {
		node, err := tx.PickReadyExecutionNode(ctx)
		if err != nil {
			return err
		}
		if node == nil {
			return nil
		}
		processed = true
		return o.processReadyNode(ctx, tx, node)
	})
	return processed, err
}

func (o *Orchestrator) processReadyNode(ctx context.Context, tx database.Interface, node *model.ExecutionNode) error {
	var taskSpec v1.TaskSpec
	if err := json.Unmarshal(node.TaskSpec, &taskSpec); err != nil {
		return o.failNode(ctx, tx, node, errors.NewOrchestratorErrorf(
			"execution %d has unparseable task spec: %v", node.Id, err))
	}
	componentSpec := taskSpec.ComponentRef.Spec
	if componentSpec == nil || componentSpec.Implementation == nil || componentSpec.Implementation.Container == nil {
		return o.failNode(ctx, tx, node, errors.NewOrchestratorErrorf(
			"execution %d is not a container task", node.Id))
	}

	inputs, err := tx.GetExecutionInputArtifacts(ctx, node.Id)
	if err != nil {
		return err
	}
	// The queue is status-driven, so a node can be claimed between an upstream
	// failure and the skip propagation reaching it. Re-check and step back.
	for _, input := range inputs {
		if input.Data == nil {
			return tx.SetExecutionNodeStatus(ctx, node.Id, model.StatusWaitingForUpstream)
		}
	}

	inputHashes := map[string]string{}
	for _, input := range inputs {
		inputHashes[input.InputName] = input.Data.Hash
	}
	cacheKey, err := cache.ComputeKey(componentSpec.Implementation.Container, inputHashes)
	if err != nil {
		return o.failNode(ctx, tx, node, err)
	}
	node.ContainerExecutionCacheKey = &cacheKey

	if o.opts.CacheEnabled {
		adopted, err := o.tryAdoptCachedExecution(ctx, tx, node, cacheKey)
		if err != nil {
			return err
		}
		if adopted {
			return nil
		}
	}
	if err := o.launchNode(ctx, tx, node, componentSpec, &taskSpec, inputs); err != nil {
		return o.failNode(ctx, tx, node, err)
	}
	return nil
}

// tryAdoptCachedExecution makes the node share a previous execution with the
// same cache key instead of launching a new container. The donor's output
// data is attached to this node's output artifacts so downstream consumers
// see no difference.
func (o *Orchestrator) tryAdoptCachedExecution(ctx context.Context, tx database.Interface, node *model.ExecutionNode, cacheKey string) (bool, error) {
	donor, err := tx.FindCacheDonorExecutionNode(ctx, cacheKey)
	if err != nil {
		return false, err
	}
	if donor == nil || donor.ContainerExecutionId == nil {
		return false, nil
	}
	donorOutputs, err := tx.GetExecutionOutputArtifacts(ctx, donor.Id)
	if err != nil {
		return false, err
	}
	donorDataByName := map[string]*int64{}
	for _, output := range donorOutputs {
		donorDataByName[output.OutputName] = output.Node.ArtifactDataId
	}
	outputs, err := tx.GetExecutionOutputArtifacts(ctx, node.Id)
	if err != nil {
		return false, err
	}
	for _, output := range outputs {
		dataId := donorDataByName[output.OutputName]
		if dataId == nil {
			// The donor never materialized this output. Fall back to a real
			// launch rather than succeed with a hole in the data-flow graph.
			return false, nil
		}
	}
	for _, output := range outputs {
		if err := tx.AttachArtifactData(ctx, output.Node.Id, *donorDataByName[output.OutputName]); err != nil {
			return false, err
		}
	}
	node.ContainerExecutionId = donor.ContainerExecutionId
	node.ContainerExecutionStatus = model.StatusPtr(model.StatusSucceeded)
	if err := tx.UpdateExecutionNode(ctx, node); err != nil {
		return false, err
	}
	if err := WakeDownstream(ctx, tx, node.Id); err != nil {
		return false, err
	}
	metrics.CacheHitsTotal.Inc()
	metrics.TerminalStatesTotal.WithLabelValues(model.StatusSucceeded.String()).Inc()
	klog.V(2).Infof("Execution %d adopted container execution %d through cache key %s",
		node.Id, *donor.ContainerExecutionId, cacheKey)
	return true, nil
}

func (o *Orchestrator) launchNode(
	ctx context.Context,
	tx database.Interface,
	node *model.ExecutionNode,
	componentSpec *v1.ComponentSpec,
	taskSpec *v1.TaskSpec,
	inputs []*database.InputArtifact,
) error {
	targetLauncher, err := o.defaultLauncher()
	if err != nil {
		return err
	}
	factory := storage.NewURIFactory(o.opts.DataRoot, o.opts.LogsRoot)

	inputArguments := map[string]*launcher.InputArgument{}
	for _, input := range inputs {
		inputArguments[input.InputName] = &launcher.InputArgument{
			TotalSize:  input.Data.TotalSize,
			IsDir:      input.Data.IsDir,
			Value:      input.Data.Value,
			Uri:        input.Data.Uri,
			StagingUri: factory.InputURI(input.InputName),
		}
	}
	outputs, err := tx.GetExecutionOutputArtifacts(ctx, node.Id)
	if err != nil {
		return err
	}
	outputURIs := map[string]string{}
	for _, output := range outputs {
		outputURIs[output.OutputName] = factory.OutputURI(output.OutputName)
	}

	annotations := MergeAnnotations(o.opts.DefaultTaskAnnotations, o.runAnnotations(ctx, tx, node.Id))
	annotations = MergeAnnotations(annotations, taskSpec.Annotations)

	container, err := targetLauncher.Launch(ctx, &launcher.LaunchRequest{
		ComponentSpec:  componentSpec,
		InputArguments: inputArguments,
		OutputURIs:     outputURIs,
		LogURI:         factory.LogURI(),
		Annotations:    annotations,
	})
	if err != nil {
		return err
	}
	launcherData, err := launcher.Serialize(container)
	if err != nil {
		return err
	}

	inputDataMap := model.InputArtifactInfoMap{}
	for _, input := range inputs {
		argument := inputArguments[input.InputName]
		inputDataMap[input.InputName] = model.InputArtifactInfo{
			Id:        input.Data.Id,
			IsDir:     input.Data.IsDir,
			TotalSize: input.Data.TotalSize,
			Hash:      input.Data.Hash,
			Value:     argument.Value,
			Uri:       argument.Uri,
		}
	}
	outputDataMap := model.OutputArtifactInfoMap{}
	for outputName, uri := range outputURIs {
		outputDataMap[outputName] = model.OutputArtifactInfo{Uri: uri}
	}

	logURI := factory.LogURI()
	containerExecution := &model.ContainerExecution{
		Status:                containerStatusToModel(container.Status()),
		CreatedAt:             time.Now(),
		LauncherData:          launcherData,
		InputArtifactDataMap:  inputDataMap,
		OutputArtifactDataMap: outputDataMap,
		LogUri:                &logURI,
	}
	if err := tx.CreateContainerExecution(ctx, containerExecution); err != nil {
		return err
	}
	node.ContainerExecutionId = &containerExecution.Id
	node.ContainerExecutionStatus = model.StatusPtr(containerExecution.Status)
	if err := tx.UpdateExecutionNode(ctx, node); err != nil {
		return err
	}
	metrics.LaunchesTotal.Inc()
	klog.V(2).Infof("Execution %d launched as container execution %d on %s",
		node.Id, containerExecution.Id, targetLauncher.Kind())
	return nil
}

// runAnnotations fetches the annotations of the run owning the node. Lookup
// failures only lose annotations, so they are logged and ignored.
func (o *Orchestrator) runAnnotations(ctx context.Context, tx database.Interface, executionId int64) map[string]interface{} {
	run, err := tx.GetPipelineRunForExecution(ctx, executionId)
	if err != nil {
		klog.Errorf("Failed to resolve pipeline run of execution %d: %v", executionId, err)
		return nil
	}
	if run == nil {
		return nil
	}
	return run.Annotations
}

// failNode commits SYSTEM_ERROR on the node and skips its consumers. The
// triggering error is logged, not returned: retrying would fail the same way.
func (o *Orchestrator) failNode(ctx context.Context, tx database.Interface, node *model.ExecutionNode, cause error) error {
	klog.Errorf("Execution %d failed with system error: %v", node.Id, cause)
	node.ContainerExecutionStatus = model.StatusPtr(model.StatusSystemError)
	if err := tx.UpdateExecutionNode(ctx, node); err != nil {
		return err
	}
	if err := SkipDownstream(ctx, tx, node.Id); err != nil {
		return err
	}
	metrics.TerminalStatesTotal.WithLabelValues(model.StatusSystemError.String()).Inc()
	return nil
}

func containerStatusToModel(status launcher.ContainerStatus) model.ContainerExecutionStatus {
	switch status {
	case launcher.ContainerPending:
		return model.StatusPending
	case launcher.ContainerRunning:
		return model.StatusRunning
	case launcher.ContainerSucceeded:
		return model.StatusSucceeded
	case launcher.ContainerFailed:
		return model.StatusFailed
	default:
		return model.StatusSystemError
	}
}

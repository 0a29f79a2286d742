/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/compiler"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/fake"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
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

func linearPipelineTask() *v1.TaskSpec {
	taskMap := v1.NewTaskMap()
	taskMap.Set("produce", &v1.TaskSpec{ComponentRef: v1.ComponentReference{Spec: producerComponent()}})
	taskMap.Set("consume", &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: consumerComponent()},
		Arguments: map[string]v1.TaskArgument{
			"value": v1.NewTaskOutputArgument("produce", "result"),
		},
	})
	return &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: &v1.ComponentSpec{
			Name:           "Pipeline",
			Implementation: &v1.Implementation{Graph: &v1.GraphSpec{Tasks: taskMap}},
		}},
	}
}

func compileTask(t *testing.T, db *fake.Client, task *v1.TaskSpec) *model.ExecutionNode {
	t.Helper()
	var rootNode *model.ExecutionNode
	err := db.Transaction(context.Background(), func(tx database.Interface) error {
		var err error
		rootNode, err = compiler.Compile(context.Background(), tx, task)
		return err
	})
	require.NoError(t, err)
	return rootNode
}

func newTestOrchestrator(db *fake.Client, fl *fakeLauncher, provider *memoryProvider, cacheEnabled bool) *Orchestrator {
	registry := launcher.Registry{}.Register(fl)
	return New(db, registry, provider, Options{
		DataRoot:            "/data",
		LogsRoot:            "/logs",
		DefaultLauncherKind: fakeLauncherKind,
		CacheEnabled:        cacheEnabled,
		RetryAttempts:       1,
		RetryInterval:       time.Millisecond,
	})
}

func findNodeByTaskId(t *testing.T, db *fake.Client, taskId string) *model.ExecutionNode {
	t.Helper()
	for _, node := range db.ExecutionNodes() {
		if node.TaskIdInParentExecution != nil && *node.TaskIdInParentExecution == taskId {
			return node
		}
	}
	t.Fatalf("no execution node for task %q", taskId)
	return nil
}

func nodeStatus(t *testing.T, db *fake.Client, executionId int64) model.ContainerExecutionStatus {
	t.Helper()
	node, err := db.GetExecutionNode(context.Background(), executionId)
	require.NoError(t, err)
	require.NotNil(t, node)
	require.NotNil(t, node.ContainerExecutionStatus)
	return *node.ContainerExecutionStatus
}

func TestReadySweepLaunchesQueuedNode(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	rootNode := compileTask(t, db, &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: producerComponent()},
	})

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, model.StatusPending, nodeStatus(t, db, rootNode.Id))

	node, err := db.GetExecutionNode(ctx, rootNode.Id)
	require.NoError(t, err)
	require.NotNil(t, node.ContainerExecutionId)
	require.NotNil(t, node.ContainerExecutionCacheKey)
	containerExecution, err := db.GetContainerExecution(ctx, *node.ContainerExecutionId)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, containerExecution.Status)
	require.NotNil(t, containerExecution.LogUri)
	require.Contains(t, containerExecution.OutputArtifactDataMap, "result")

	request := fl.request("1")
	require.NotNil(t, request)
	assert.Equal(t, "Producer", request.ComponentSpec.Name)
	assert.Equal(t, containerExecution.OutputArtifactDataMap["result"].Uri, request.OutputURIs["result"])

	// Queue is empty now.
	processed, err = o.SweepReadyNode(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestSucceededContainerPropagatesValueDownstream(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	compileTask(t, db, linearPipelineTask())
	producerNode := findNodeByTaskId(t, db, "produce")
	consumerNode := findNodeByTaskId(t, db, "consume")

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusPending, nodeStatus(t, db, producerNode.Id))
	assert.Equal(t, model.StatusWaitingForUpstream, nodeStatus(t, db, consumerNode.Id))

	// The container finishes and writes its output where it was told to.
	exitCode := int64(0)
	require.NoError(t, provider.UploadText(ctx, fl.request("1").OutputURIs["result"], "42"))
	fl.setState("1", launcher.ContainerSucceeded, &exitCode, "produced 42\n")

	processed, err = o.SweepInFlightContainer(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusSucceeded, nodeStatus(t, db, producerNode.Id))
	assert.Equal(t, model.StatusQueued, nodeStatus(t, db, consumerNode.Id))

	outputs, err := db.GetExecutionOutputArtifacts(ctx, producerNode.Id)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.NotNil(t, outputs[0].Node.ArtifactDataId)
	data, err := db.GetArtifactData(ctx, *outputs[0].Node.ArtifactDataId)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, int64(2), data.TotalSize)
	assert.Equal(t, "md5=a1d0c6e83f027327d8461063f4ac58a6", data.Hash)
	require.NotNil(t, data.Value)
	assert.Equal(t, "42", *data.Value)

	// The log ends up next to the artifacts.
	refreshedProducer, err := db.GetExecutionNode(ctx, producerNode.Id)
	require.NoError(t, err)
	containerExecution, err := db.GetContainerExecution(ctx, *refreshedProducer.ContainerExecutionId)
	require.NoError(t, err)
	logText, err := provider.DownloadText(ctx, *containerExecution.LogUri)
	require.NoError(t, err)
	assert.Equal(t, "produced 42\n", logText)

	// The consumer launches with the produced value inlined.
	processed, err = o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusPending, nodeStatus(t, db, consumerNode.Id))
	consumerRequest := fl.request("2")
	require.NotNil(t, consumerRequest)
	require.Contains(t, consumerRequest.InputArguments, "value")
	require.NotNil(t, consumerRequest.InputArguments["value"].Value)
	assert.Equal(t, "42", *consumerRequest.InputArguments["value"].Value)
}

func TestFailedContainerSkipsDownstream(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	compileTask(t, db, linearPipelineTask())
	producerNode := findNodeByTaskId(t, db, "produce")
	consumerNode := findNodeByTaskId(t, db, "consume")

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	exitCode := int64(3)
	fl.setState("1", launcher.ContainerFailed, &exitCode, "boom\n")

	processed, err = o.SweepInFlightContainer(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusFailed, nodeStatus(t, db, producerNode.Id))
	assert.Equal(t, model.StatusSkipped, nodeStatus(t, db, consumerNode.Id))

	refreshedProducer, err := db.GetExecutionNode(ctx, producerNode.Id)
	require.NoError(t, err)
	containerExecution, err := db.GetContainerExecution(ctx, *refreshedProducer.ContainerExecutionId)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, containerExecution.Status)
	require.NotNil(t, containerExecution.ExitCode)
	assert.Equal(t, int64(3), *containerExecution.ExitCode)

	// Skipped nodes never had a container.
	refreshedConsumer, err := db.GetExecutionNode(ctx, consumerNode.Id)
	require.NoError(t, err)
	assert.Nil(t, refreshedConsumer.ContainerExecutionId)

	// Nothing is in flight anymore.
	processed, err = o.SweepInFlightContainer(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestCacheHitAdoptsPreviousExecution(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, true)

	task := &v1.TaskSpec{ComponentRef: v1.ComponentReference{Spec: producerComponent()}}
	firstNode := compileTask(t, db, task)

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	exitCode := int64(0)
	require.NoError(t, provider.UploadText(ctx, fl.request("1").OutputURIs["result"], "42"))
	fl.setState("1", launcher.ContainerSucceeded, &exitCode, "")
	processed, err = o.SweepInFlightContainer(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, model.StatusSucceeded, nodeStatus(t, db, firstNode.Id))

	// An identical second run adopts the finished execution without launching.
	secondNode := compileTask(t, db, task)
	processed, err = o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusSucceeded, nodeStatus(t, db, secondNode.Id))
	assert.Equal(t, 1, fl.launches)

	refreshedFirst, err := db.GetExecutionNode(ctx, firstNode.Id)
	require.NoError(t, err)
	refreshedSecond, err := db.GetExecutionNode(ctx, secondNode.Id)
	require.NoError(t, err)
	require.NotNil(t, refreshedSecond.ContainerExecutionId)
	assert.Equal(t, *refreshedFirst.ContainerExecutionId, *refreshedSecond.ContainerExecutionId)
	assert.Equal(t, *refreshedFirst.ContainerExecutionCacheKey, *refreshedSecond.ContainerExecutionCacheKey)

	firstOutputs, err := db.GetExecutionOutputArtifacts(ctx, firstNode.Id)
	require.NoError(t, err)
	secondOutputs, err := db.GetExecutionOutputArtifacts(ctx, secondNode.Id)
	require.NoError(t, err)
	require.Len(t, secondOutputs, 1)
	require.NotNil(t, secondOutputs[0].Node.ArtifactDataId)
	assert.Equal(t, *firstOutputs[0].Node.ArtifactDataId, *secondOutputs[0].Node.ArtifactDataId)
}

func TestReadySweepStepsBackWhenInputDataMissing(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	compileTask(t, db, linearPipelineTask())
	producerNode := findNodeByTaskId(t, db, "produce")
	consumerNode := findNodeByTaskId(t, db, "consume")

	// Claim the producer first so only the consumer is queued.
	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, model.StatusPending, nodeStatus(t, db, producerNode.Id))

	// A stale QUEUED status must not launch a node whose input has no data.
	require.NoError(t, db.SetExecutionNodeStatus(ctx, consumerNode.Id, model.StatusQueued))
	processed, err = o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusWaitingForUpstream, nodeStatus(t, db, consumerNode.Id))
	assert.Equal(t, 1, fl.launches)
}

func TestInFlightSweepRotatesThroughContainers(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	compileTask(t, db, &v1.TaskSpec{ComponentRef: v1.ComponentReference{Spec: producerComponent()}})
	compileTask(t, db, &v1.TaskSpec{ComponentRef: v1.ComponentReference{Spec: consumerComponent()}, Arguments: map[string]v1.TaskArgument{
		"value": v1.NewConstantArgument("hello"),
	}})
	for i := 0; i < 2; i++ {
		processed, err := o.SweepReadyNode(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}
	require.Equal(t, 2, fl.launches)

	// Never-processed containers go first, then the least recently touched.
	for _, wantOrder := range [][]string{{"1"}, {"1", "2"}, {"1", "2", "1"}, {"1", "2", "1", "2"}} {
		processed, err := o.SweepInFlightContainer(ctx)
		require.NoError(t, err)
		require.True(t, processed)
		assert.Equal(t, wantOrder, fl.refreshed)
	}
}

func TestUnparseableTaskSpecSettlesAsSystemError(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	node := &model.ExecutionNode{
		TaskSpec:                 []byte(`{broken`),
		ContainerExecutionStatus: model.StatusPtr(model.StatusQueued),
	}
	require.NoError(t, db.CreateExecutionNode(ctx, node))

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	assert.Equal(t, model.StatusSystemError, nodeStatus(t, db, node.Id))
	assert.Equal(t, 0, fl.launches)
}

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
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/fake"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
)

func TestCancelPipelineRunTerminatesInFlightContainers(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	compileTask(t, db, linearPipelineTask())
	producerNode := findNodeByTaskId(t, db, "produce")
	consumerNode := findNodeByTaskId(t, db, "consume")

	rootId := db.ExecutionNodes()[0].Id
	now := time.Now()
	run := &model.PipelineRun{
		RootExecutionId: rootId,
		CreatedBy:       "alice",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.CreatePipelineRun(ctx, run))

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, model.StatusPending, nodeStatus(t, db, producerNode.Id))

	require.NoError(t, CancelPipelineRun(ctx, db, launcher.Registry{}.Register(fl), run.Id, "alice"))

	assert.Equal(t, model.StatusCancelled, nodeStatus(t, db, producerNode.Id))
	assert.Equal(t, model.StatusCancelled, nodeStatus(t, db, consumerNode.Id))
	assert.Equal(t, []string{"1"}, fl.terminated)

	refreshedProducer, err := db.GetExecutionNode(ctx, producerNode.Id)
	require.NoError(t, err)
	containerExecution, err := db.GetContainerExecution(ctx, *refreshedProducer.ContainerExecutionId)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, containerExecution.Status)

	refreshedRun, err := db.GetPipelineRun(ctx, run.Id)
	require.NoError(t, err)
	require.NotNil(t, refreshedRun.TerminatedAt)
	assert.Equal(t, "alice", refreshedRun.TerminatedBy)

	// Cancelling again is a no-op; nothing new gets terminated.
	require.NoError(t, CancelPipelineRun(ctx, db, launcher.Registry{}.Register(fl), run.Id, "alice"))
	assert.Equal(t, []string{"1"}, fl.terminated)
}

func TestCancelPipelineRunUnknownRun(t *testing.T) {
	db := fake.NewClient()
	err := CancelPipelineRun(context.Background(), db, launcher.Registry{}, 404, "alice")
	require.Error(t, err)
	assert.True(t, errors.IsItemNotFound(err))
}

func TestCancelLeavesFinishedNodesAlone(t *testing.T) {
	ctx := context.Background()
	db := fake.NewClient()
	fl := newFakeLauncher()
	provider := newMemoryProvider()
	o := newTestOrchestrator(db, fl, provider, false)

	rootNode := compileTask(t, db, &v1.TaskSpec{
		ComponentRef: v1.ComponentReference{Spec: producerComponent()},
	})
	now := time.Now()
	run := &model.PipelineRun{RootExecutionId: rootNode.Id, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.CreatePipelineRun(ctx, run))

	processed, err := o.SweepReadyNode(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	exitCode := int64(0)
	require.NoError(t, provider.UploadText(ctx, fl.request("1").OutputURIs["result"], "done"))
	fl.setState("1", launcher.ContainerSucceeded, &exitCode, "")
	processed, err = o.SweepInFlightContainer(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	require.NoError(t, CancelPipelineRun(ctx, db, launcher.Registry{}.Register(fl), run.Id, "bob"))
	assert.Equal(t, model.StatusSucceeded, nodeStatus(t, db, rootNode.Id))
	assert.Empty(t, fl.terminated)
}

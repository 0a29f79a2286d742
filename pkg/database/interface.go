/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"
	"time"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

type Interface interface {
	PipelineRunInterface
	ExecutionNodeInterface
	ArtifactInterface
	ContainerExecutionInterface

	// Transaction runs fn with an Interface bound to one database
	// transaction. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Interface) error) error
	Ping(ctx context.Context) error
}

type PipelineRunInterface interface {
	CreatePipelineRun(ctx context.Context, run *model.PipelineRun) error
	GetPipelineRun(ctx context.Context, id int64) (*model.PipelineRun, error)
	// GetPipelineRunForExecution resolves the run owning an execution node,
	// either through the ancestor closure or the node being the root itself.
	GetPipelineRunForExecution(ctx context.Context, executionId int64) (*model.PipelineRun, error)
	// ListPipelineRuns pages through runs newest-first.
	ListPipelineRuns(ctx context.Context, offset, limit int) ([]*model.PipelineRun, error)
	UpdatePipelineRun(ctx context.Context, run *model.PipelineRun) error
}

type ExecutionNodeInterface interface {
	CreateExecutionNode(ctx context.Context, node *model.ExecutionNode) error
	GetExecutionNode(ctx context.Context, id int64) (*model.ExecutionNode, error)
	UpdateExecutionNode(ctx context.Context, node *model.ExecutionNode) error
	SetExecutionNodeStatus(ctx context.Context, id int64, status model.ContainerExecutionStatus) error
	// PickReadyExecutionNode claims one node waiting in the ready queue.
	PickReadyExecutionNode(ctx context.Context) (*model.ExecutionNode, error)
	GetExecutionNodesByContainerExecutionId(ctx context.Context, containerExecutionId int64) ([]*model.ExecutionNode, error)
	// GetDirectDownstreamExecutionNodes returns the executions consuming any
	// output artifact of the given execution.
	GetDirectDownstreamExecutionNodes(ctx context.Context, executionId int64) ([]*model.ExecutionNode, error)
	// GetSubtreeExecutionNodes returns the execution and all its closure
	// descendants.
	GetSubtreeExecutionNodes(ctx context.Context, rootExecutionId int64) ([]*model.ExecutionNode, error)
	// FindCacheDonorExecutionNode returns a succeeded execution node carrying
	// the same cache key, if any.
	FindCacheDonorExecutionNode(ctx context.Context, cacheKey string) (*model.ExecutionNode, error)
	CreateExecutionToAncestorExecutionLink(ctx context.Context, link *model.ExecutionToAncestorExecutionLink) error
}

type ArtifactInterface interface {
	CreateArtifactData(ctx context.Context, data *model.ArtifactData) error
	GetArtifactData(ctx context.Context, id int64) (*model.ArtifactData, error)
	CreateArtifactNode(ctx context.Context, node *model.ArtifactNode) error
	GetArtifactNode(ctx context.Context, id int64) (*model.ArtifactNode, error)
	// AttachArtifactData points an artifact node at materialized data and
	// remembers that the node has had data.
	AttachArtifactData(ctx context.Context, artifactNodeId, artifactDataId int64) error
	CreateInputArtifactLink(ctx context.Context, link *model.InputArtifactLink) error
	CreateOutputArtifactLink(ctx context.Context, link *model.OutputArtifactLink) error
	GetExecutionInputArtifacts(ctx context.Context, executionId int64) ([]*InputArtifact, error)
	GetExecutionOutputArtifacts(ctx context.Context, executionId int64) ([]*OutputArtifact, error)
}

type ContainerExecutionInterface interface {
	CreateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error
	GetContainerExecution(ctx context.Context, id int64) (*model.ContainerExecution, error)
	UpdateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error
	// TouchContainerExecution stamps last_processed_at so a problematic
	// container cannot keep the in-flight queue stuck on itself.
	TouchContainerExecution(ctx context.Context, id int64, processedAt time.Time) error
	// PickInFlightContainerExecution claims the least recently processed
	// container execution that is still pending or running.
	PickInFlightContainerExecution(ctx context.Context) (*model.ContainerExecution, error)
}

// InputArtifact is one resolved input of an execution. Data stays nil until
// the producing execution materializes it.
type InputArtifact struct {
	InputName string
	Node      *model.ArtifactNode
	Data      *model.ArtifactData
}

// OutputArtifact is one declared output artifact node of an execution.
type OutputArtifact struct {
	OutputName string
	Node       *model.ArtifactNode
}

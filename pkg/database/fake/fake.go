/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package fake provides an in-memory database.Interface for tests.
package fake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

type tables struct {
	pipelineRuns        map[int64]model.PipelineRun
	executionNodes      map[int64]model.ExecutionNode
	artifactNodes       map[int64]model.ArtifactNode
	artifactData        map[int64]model.ArtifactData
	inputLinks          map[int64]model.InputArtifactLink
	outputLinks         map[int64]model.OutputArtifactLink
	ancestorLinks       map[int64]model.ExecutionToAncestorExecutionLink
	containerExecutions map[int64]model.ContainerExecution
}

func newTables() *tables {
	return &tables{
		pipelineRuns:        map[int64]model.PipelineRun{},
		executionNodes:      map[int64]model.ExecutionNode{},
		artifactNodes:       map[int64]model.ArtifactNode{},
		artifactData:        map[int64]model.ArtifactData{},
		inputLinks:          map[int64]model.InputArtifactLink{},
		outputLinks:         map[int64]model.OutputArtifactLink{},
		ancestorLinks:       map[int64]model.ExecutionToAncestorExecutionLink{},
		containerExecutions: map[int64]model.ContainerExecution{},
	}
}

func (t *tables) clone() *tables {
	result := newTables()
	for id, row := range t.pipelineRuns {
		result.pipelineRuns[id] = row
	}
	for id, row := range t.executionNodes {
		result.executionNodes[id] = row
	}
	for id, row := range t.artifactNodes {
		result.artifactNodes[id] = row
	}
	for id, row := range t.artifactData {
		result.artifactData[id] = row
	}
	for id, row := range t.inputLinks {
		result.inputLinks[id] = row
	}
	for id, row := range t.outputLinks {
		result.outputLinks[id] = row
	}
	for id, row := range t.ancestorLinks {
		result.ancestorLinks[id] = row
	}
	for id, row := range t.containerExecutions {
		result.containerExecutions[id] = row
	}
	return result
}

// Client is an in-memory database.Interface. Transactions snapshot the whole
// store and restore it when the callback fails, which matches the rollback
// semantics the compiler and orchestrator rely on.
type Client struct {
	mu     sync.Mutex
	nextId int64
	data   *tables
}

var _ database.Interface = &Client{}

func NewClient() *Client {
	return &Client{data: newTables()}
}

func (c *Client) allocateId() int64 {
	c.nextId++
	return c.nextId
}

func (c *Client) Transaction(ctx context.Context, fn func(tx database.Interface) error) error {
	c.mu.Lock()
	snapshot := c.data.clone()
	c.mu.Unlock()
	if err := fn(c); err != nil {
		c.mu.Lock()
		c.data = snapshot
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return nil
}

func (c *Client) CreatePipelineRun(ctx context.Context, run *model.PipelineRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run.Id == 0 {
		run.Id = c.allocateId()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.UpdatedAt = run.CreatedAt
	c.data.pipelineRuns[run.Id] = *run
	return nil
}

func (c *Client) GetPipelineRun(ctx context.Context, id int64) (*model.PipelineRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run, ok := c.data.pipelineRuns[id]; ok {
		result := run
		return &result, nil
	}
	return nil, nil
}

func (c *Client) GetPipelineRunForExecution(ctx context.Context, executionId int64) (*model.PipelineRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rootIds := map[int64]bool{executionId: true}
	for _, link := range c.data.ancestorLinks {
		if link.ExecutionId == executionId {
			rootIds[link.AncestorExecutionId] = true
		}
	}
	for _, id := range sortedIds(c.data.pipelineRuns) {
		run := c.data.pipelineRuns[id]
		if rootIds[run.RootExecutionId] {
			result := run
			return &result, nil
		}
	}
	return nil, nil
}

func (c *Client) ListPipelineRuns(ctx context.Context, offset, limit int) ([]*model.PipelineRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := sortedIds(c.data.pipelineRuns)
	// Newest first.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	var result []*model.PipelineRun
	for i := offset; i < len(ids) && len(result) < limit; i++ {
		run := c.data.pipelineRuns[ids[i]]
		result = append(result, &run)
	}
	return result, nil
}

func (c *Client) UpdatePipelineRun(ctx context.Context, run *model.PipelineRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	run.UpdatedAt = time.Now()
	c.data.pipelineRuns[run.Id] = *run
	return nil
}

func (c *Client) CreateExecutionNode(ctx context.Context, node *model.ExecutionNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node.Id == 0 {
		node.Id = c.allocateId()
	}
	c.data.executionNodes[node.Id] = *node
	return nil
}

func (c *Client) GetExecutionNode(ctx context.Context, id int64) (*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.data.executionNodes[id]; ok {
		result := node
		return &result, nil
	}
	return nil, nil
}

func (c *Client) UpdateExecutionNode(ctx context.Context, node *model.ExecutionNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.executionNodes[node.Id] = *node
	return nil
}

func (c *Client) SetExecutionNodeStatus(ctx context.Context, id int64, status model.ContainerExecutionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.data.executionNodes[id]
	if !ok {
		return nil
	}
	node.ContainerExecutionStatus = model.StatusPtr(status)
	c.data.executionNodes[id] = node
	return nil
}

func (c *Client) PickReadyExecutionNode(ctx context.Context) (*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range sortedIds(c.data.executionNodes) {
		node := c.data.executionNodes[id]
		if node.ContainerExecutionStatus == nil {
			continue
		}
		if *node.ContainerExecutionStatus == model.StatusQueued ||
			*node.ContainerExecutionStatus == model.StatusUninitialized {
			result := node
			return &result, nil
		}
	}
	return nil, nil
}

func (c *Client) GetExecutionNodesByContainerExecutionId(ctx context.Context, containerExecutionId int64) ([]*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*model.ExecutionNode
	for _, id := range sortedIds(c.data.executionNodes) {
		node := c.data.executionNodes[id]
		if node.ContainerExecutionId != nil && *node.ContainerExecutionId == containerExecutionId {
			row := node
			result = append(result, &row)
		}
	}
	return result, nil
}

func (c *Client) GetDirectDownstreamExecutionNodes(ctx context.Context, executionId int64) ([]*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	producedNodes := map[int64]bool{}
	for _, link := range c.data.outputLinks {
		if link.ExecutionId == executionId {
			producedNodes[link.ArtifactNodeId] = true
		}
	}
	downstreamIds := map[int64]bool{}
	for _, link := range c.data.inputLinks {
		if producedNodes[link.ArtifactNodeId] {
			downstreamIds[link.ExecutionId] = true
		}
	}
	var result []*model.ExecutionNode
	for _, id := range sortedIds(c.data.executionNodes) {
		if downstreamIds[id] {
			node := c.data.executionNodes[id]
			result = append(result, &node)
		}
	}
	return result, nil
}

func (c *Client) GetSubtreeExecutionNodes(ctx context.Context, rootExecutionId int64) ([]*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	memberIds := map[int64]bool{rootExecutionId: true}
	for _, link := range c.data.ancestorLinks {
		if link.AncestorExecutionId == rootExecutionId {
			memberIds[link.ExecutionId] = true
		}
	}
	var result []*model.ExecutionNode
	for _, id := range sortedIds(c.data.executionNodes) {
		if memberIds[id] {
			node := c.data.executionNodes[id]
			result = append(result, &node)
		}
	}
	return result, nil
}

func (c *Client) FindCacheDonorExecutionNode(ctx context.Context, cacheKey string) (*model.ExecutionNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range sortedIds(c.data.executionNodes) {
		node := c.data.executionNodes[id]
		if node.ContainerExecutionCacheKey == nil || *node.ContainerExecutionCacheKey != cacheKey {
			continue
		}
		if node.ContainerExecutionStatus == nil || *node.ContainerExecutionStatus != model.StatusSucceeded {
			continue
		}
		if node.ContainerExecutionId == nil {
			continue
		}
		result := node
		return &result, nil
	}
	return nil, nil
}

func (c *Client) CreateExecutionToAncestorExecutionLink(ctx context.Context, link *model.ExecutionToAncestorExecutionLink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link.Id == 0 {
		link.Id = c.allocateId()
	}
	c.data.ancestorLinks[link.Id] = *link
	return nil
}

func (c *Client) CreateArtifactData(ctx context.Context, data *model.ArtifactData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data.Id == 0 {
		data.Id = c.allocateId()
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	c.data.artifactData[data.Id] = *data
	return nil
}

func (c *Client) GetArtifactData(ctx context.Context, id int64) (*model.ArtifactData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.data.artifactData[id]; ok {
		result := data
		return &result, nil
	}
	return nil, nil
}

func (c *Client) CreateArtifactNode(ctx context.Context, node *model.ArtifactNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node.Id == 0 {
		node.Id = c.allocateId()
	}
	c.data.artifactNodes[node.Id] = *node
	return nil
}

func (c *Client) GetArtifactNode(ctx context.Context, id int64) (*model.ArtifactNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.data.artifactNodes[id]; ok {
		result := node
		return &result, nil
	}
	return nil, nil
}

func (c *Client) AttachArtifactData(ctx context.Context, artifactNodeId, artifactDataId int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.data.artifactNodes[artifactNodeId]
	if !ok {
		return nil
	}
	node.ArtifactDataId = &artifactDataId
	node.HadDataInPast = true
	c.data.artifactNodes[artifactNodeId] = node
	return nil
}

func (c *Client) CreateInputArtifactLink(ctx context.Context, link *model.InputArtifactLink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link.Id == 0 {
		link.Id = c.allocateId()
	}
	c.data.inputLinks[link.Id] = *link
	return nil
}

func (c *Client) CreateOutputArtifactLink(ctx context.Context, link *model.OutputArtifactLink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link.Id == 0 {
		link.Id = c.allocateId()
	}
	c.data.outputLinks[link.Id] = *link
	return nil
}

func (c *Client) GetExecutionInputArtifacts(ctx context.Context, executionId int64) ([]*database.InputArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*database.InputArtifact
	for _, id := range sortedIds(c.data.inputLinks) {
		link := c.data.inputLinks[id]
		if link.ExecutionId != executionId {
			continue
		}
		node := c.data.artifactNodes[link.ArtifactNodeId]
		artifact := &database.InputArtifact{InputName: link.InputName, Node: &node}
		if node.ArtifactDataId != nil {
			if data, ok := c.data.artifactData[*node.ArtifactDataId]; ok {
				artifact.Data = &data
			}
		}
		result = append(result, artifact)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].InputName < result[j].InputName })
	return result, nil
}

func (c *Client) GetExecutionOutputArtifacts(ctx context.Context, executionId int64) ([]*database.OutputArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*database.OutputArtifact
	for _, id := range sortedIds(c.data.outputLinks) {
		link := c.data.outputLinks[id]
		if link.ExecutionId != executionId {
			continue
		}
		node := c.data.artifactNodes[link.ArtifactNodeId]
		result = append(result, &database.OutputArtifact{OutputName: link.OutputName, Node: &node})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OutputName < result[j].OutputName })
	return result, nil
}

func (c *Client) CreateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if containerExecution.Id == 0 {
		containerExecution.Id = c.allocateId()
	}
	if containerExecution.CreatedAt.IsZero() {
		containerExecution.CreatedAt = time.Now()
	}
	c.data.containerExecutions[containerExecution.Id] = *containerExecution
	return nil
}

func (c *Client) GetContainerExecution(ctx context.Context, id int64) (*model.ContainerExecution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if containerExecution, ok := c.data.containerExecutions[id]; ok {
		result := containerExecution
		return &result, nil
	}
	return nil, nil
}

func (c *Client) UpdateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	containerExecution.UpdatedAt = &now
	c.data.containerExecutions[containerExecution.Id] = *containerExecution
	return nil
}

func (c *Client) TouchContainerExecution(ctx context.Context, id int64, processedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	containerExecution, ok := c.data.containerExecutions[id]
	if !ok {
		return nil
	}
	containerExecution.LastProcessedAt = &processedAt
	c.data.containerExecutions[id] = containerExecution
	return nil
}

func (c *Client) PickInFlightContainerExecution(ctx context.Context) (*model.ContainerExecution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var picked *model.ContainerExecution
	for _, id := range sortedIds(c.data.containerExecutions) {
		containerExecution := c.data.containerExecutions[id]
		if containerExecution.Status != model.StatusPending && containerExecution.Status != model.StatusRunning {
			continue
		}
		if picked == nil || olderThan(containerExecution.LastProcessedAt, picked.LastProcessedAt) {
			row := containerExecution
			picked = &row
		}
	}
	return picked, nil
}

// CountRows reports the total number of persisted rows across all tables.
// Tests use it to assert that failed submissions leave nothing behind.
func (c *Client) CountRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data.pipelineRuns) + len(c.data.executionNodes) +
		len(c.data.artifactNodes) + len(c.data.artifactData) +
		len(c.data.inputLinks) + len(c.data.outputLinks) +
		len(c.data.ancestorLinks) + len(c.data.containerExecutions)
}

// ExecutionNodes returns every execution node ordered by id.
func (c *Client) ExecutionNodes() []*model.ExecutionNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*model.ExecutionNode
	for _, id := range sortedIds(c.data.executionNodes) {
		node := c.data.executionNodes[id]
		result = append(result, &node)
	}
	return result
}

// AncestorLinks returns every closure edge as (execution, ancestor) pairs.
func (c *Client) AncestorLinks() [][2]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result [][2]int64
	for _, id := range sortedIds(c.data.ancestorLinks) {
		link := c.data.ancestorLinks[id]
		result = append(result, [2]int64{link.ExecutionId, link.AncestorExecutionId})
	}
	return result
}

func olderThan(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}

func sortedIds[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

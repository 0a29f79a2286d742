/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

// WakeDownstream re-queues the direct consumers of an execution's outputs.
// A waiting consumer becomes QUEUED once every one of its connected inputs
// has materialized data; consumers with other still-missing inputs stay
// WAITING_FOR_UPSTREAM.
func WakeDownstream(ctx context.Context, tx database.Interface, executionId int64) error {
	downstream, err := tx.GetDirectDownstreamExecutionNodes(ctx, executionId)
	if err != nil {
		return err
	}
	for _, node := range downstream {
		if node.ContainerExecutionStatus == nil ||
			*node.ContainerExecutionStatus != model.StatusWaitingForUpstream {
			continue
		}
		inputs, err := tx.GetExecutionInputArtifacts(ctx, node.Id)
		if err != nil {
			return err
		}
		ready := true
		for _, input := range inputs {
			if input.Node.ArtifactDataId == nil {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if err := tx.SetExecutionNodeStatus(ctx, node.Id, model.StatusQueued); err != nil {
			return err
		}
	}
	return nil
}

// SkipDownstream marks every transitive consumer that has not started yet as
// SKIPPED. Nodes already in flight or terminal are left alone; their own
// sweeps settle them.
func SkipDownstream(ctx context.Context, tx database.Interface, executionId int64) error {
	visited := map[int64]bool{executionId: true}
	pending := []int64{executionId}
	for len(pending) > 0 {
		currentId := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		downstream, err := tx.GetDirectDownstreamExecutionNodes(ctx, currentId)
		if err != nil {
			return err
		}
		for _, node := range downstream {
			if visited[node.Id] {
				continue
			}
			visited[node.Id] = true
			if node.ContainerExecutionStatus == nil {
				continue
			}
			switch *node.ContainerExecutionStatus {
			case model.StatusUninitialized, model.StatusWaitingForUpstream, model.StatusQueued:
				if err := tx.SetExecutionNodeStatus(ctx, node.Id, model.StatusSkipped); err != nil {
					return err
				}
				pending = append(pending, node.Id)
			}
		}
	}
	return nil
}

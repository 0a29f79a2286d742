/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/metrics"
)

// CancelPipelineRun moves every unfinished execution of the run to CANCELLED
// and asks the runtimes to terminate the containers still in flight.
// Termination is best effort; the database state is authoritative either way.
// Cancelling an already terminated run is a no-op.
func CancelPipelineRun(ctx context.Context, db database.Interface, launchers launcher.Registry, runId int64, byUser string) error {
	run, err := db.GetPipelineRun(ctx, runId)
	if err != nil {
		return err
	}
	if run == nil {
		return errors.NewItemNotFound(errors.PipelineRunKind, strconv.FormatInt(runId, 10))
	}

	var terminated []*model.ContainerExecution
	err = db.Transaction(ctx, func(tx database.Interface) error {
		nodes, err := tx.GetSubtreeExecutionNodes(ctx, run.RootExecutionId)
		if err != nil {
			return err
		}
		cancelledContainerExecutions := map[int64]bool{}
		for _, node := range nodes {
			if node.ContainerExecutionStatus == nil || node.ContainerExecutionStatus.IsTerminal() {
				continue
			}
			if node.ContainerExecutionId != nil && !cancelledContainerExecutions[*node.ContainerExecutionId] {
				cancelledContainerExecutions[*node.ContainerExecutionId] = true
				containerExecution, err := tx.GetContainerExecution(ctx, *node.ContainerExecutionId)
				if err != nil {
					return err
				}
				if containerExecution != nil && !containerExecution.Status.IsTerminal() {
					containerExecution.Status = model.StatusCancelled
					if err := tx.UpdateContainerExecution(ctx, containerExecution); err != nil {
						return err
					}
					terminated = append(terminated, containerExecution)
				}
			}
			if err := tx.SetExecutionNodeStatus(ctx, node.Id, model.StatusCancelled); err != nil {
				return err
			}
			metrics.TerminalStatesTotal.WithLabelValues(model.StatusCancelled.String()).Inc()
		}
		if run.TerminatedAt == nil {
			now := time.Now()
			run.TerminatedAt = &now
			run.TerminatedBy = byUser
			if err := tx.UpdatePipelineRun(ctx, run); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, containerExecution := range terminated {
		targetLauncher, container, err := launchers.Deserialize(containerExecution.LauncherData)
		if err == nil {
			err = targetLauncher.Terminate(ctx, container)
		}
		if err != nil {
			klog.Errorf("Failed to terminate container execution %d: %v", containerExecution.Id, err)
		}
	}
	return nil
}

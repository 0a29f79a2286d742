/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"context"
	"time"
	"unicode/utf8"

	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/backoff"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/metrics"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

// SweepInFlightContainer refreshes the least recently processed pending or
// running container execution and applies the observed state to the database.
// Returns false when nothing is in flight.
func (o *Orchestrator) SweepInFlightContainer(ctx context.Context) (bool, error) {
	var containerExecution *model.ContainerExecution
	// The touch commits on its own before any runtime call, so a container
	// whose processing keeps crashing rotates to the back of the queue
	// instead of starving the rest.
	err := o.db.Transaction(ctx, func(tx database.Interface) error {
		picked, err := tx.PickInFlightContainerExecution(ctx)
		if err != nil {
			return err
		}
		if picked == nil {
			return nil
		}
		if err := tx.TouchContainerExecution(ctx, picked.Id, time.Now()); err != nil {
			return err
		}
		containerExecution = picked
		return nil
	})
	if err != nil || containerExecution == nil {
		return false, err
	}

	if err := o.refreshContainerExecution(ctx, containerExecution); err != nil {
		klog.Errorf("Container execution %d failed with system error: %v", containerExecution.Id, err)
		if err := o.escalateSystemError(ctx, containerExecution); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (o *Orchestrator) refreshContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error {
	targetLauncher, container, err := o.launchers.Deserialize(containerExecution.LauncherData)
	if err != nil {
		return err
	}
	refreshed, err := targetLauncher.Refresh(ctx, container)
	if err != nil {
		return err
	}
	switch refreshed.Status() {
	case launcher.ContainerPending, launcher.ContainerRunning:
		return o.applyRunningState(ctx, containerExecution, refreshed)
	case launcher.ContainerSucceeded:
		return o.applySucceededState(ctx, containerExecution, targetLauncher, refreshed)
	case launcher.ContainerFailed:
		return o.applyFailedState(ctx, containerExecution, targetLauncher, refreshed)
	default:
		return errors.NewOrchestratorErrorf(
			"container execution %d reported unexpected status %q",
			containerExecution.Id, refreshed.Status())
	}
}

func (o *Orchestrator) applyRunningState(ctx context.Context, containerExecution *model.ContainerExecution, container launcher.LaunchedContainer) error {
	status := containerStatusToModel(container.Status())
	launcherData, err := launcher.Serialize(container)
	if err != nil {
		return err
	}
	return o.db.Transaction(ctx, func(tx database.Interface) error {
		containerExecution.Status = status
		containerExecution.LauncherData = launcherData
		if err := tx.UpdateContainerExecution(ctx, containerExecution); err != nil {
			return err
		}
		return o.updateNodesStatus(ctx, tx, containerExecution.Id, status, nil)
	})
}

func (o *Orchestrator) applySucceededState(
	ctx context.Context,
	containerExecution *model.ContainerExecution,
	targetLauncher launcher.Launcher,
	container launcher.LaunchedContainer,
) error {
	o.uploadContainerLog(ctx, containerExecution, targetLauncher, container)

	// Materialize every declared output before touching the database so a
	// storage failure leaves the execution in flight for the next sweep.
	outputData := map[string]*model.ArtifactData{}
	for outputName, outputInfo := range containerExecution.OutputArtifactDataMap {
		data, err := o.materializeOutput(ctx, outputInfo.Uri)
		if err != nil {
			return errors.NewOrchestratorErrorf(
				"container execution %d output %q was not materialized: %v",
				containerExecution.Id, outputName, err)
		}
		outputData[outputName] = data
	}
	launcherData, err := launcher.Serialize(container)
	if err != nil {
		return err
	}

	return o.db.Transaction(ctx, func(tx database.Interface) error {
		for _, data := range outputData {
			if err := tx.CreateArtifactData(ctx, data); err != nil {
				return err
			}
		}
		containerExecution.Status = model.StatusSucceeded
		containerExecution.LauncherData = launcherData
		containerExecution.ExitCode = container.ExitCode()
		if err := tx.UpdateContainerExecution(ctx, containerExecution); err != nil {
			return err
		}
		return o.updateNodesStatus(ctx, tx, containerExecution.Id, model.StatusSucceeded,
			func(node *model.ExecutionNode) error {
				outputs, err := tx.GetExecutionOutputArtifacts(ctx, node.Id)
				if err != nil {
					return err
				}
				for _, output := range outputs {
					data, ok := outputData[output.OutputName]
					if !ok {
						return errors.NewOrchestratorErrorf(
							"execution %d declares output %q unknown to container execution %d",
							node.Id, output.OutputName, containerExecution.Id)
					}
					if err := tx.AttachArtifactData(ctx, output.Node.Id, data.Id); err != nil {
						return err
					}
				}
				return WakeDownstream(ctx, tx, node.Id)
			})
	})
}

func (o *Orchestrator) applyFailedState(
	ctx context.Context,
	containerExecution *model.ContainerExecution,
	targetLauncher launcher.Launcher,
	container launcher.LaunchedContainer,
) error {
	o.uploadContainerLog(ctx, containerExecution, targetLauncher, container)
	launcherData, err := launcher.Serialize(container)
	if err != nil {
		return err
	}
	return o.db.Transaction(ctx, func(tx database.Interface) error {
		containerExecution.Status = model.StatusFailed
		containerExecution.LauncherData = launcherData
		containerExecution.ExitCode = container.ExitCode()
		if err := tx.UpdateContainerExecution(ctx, containerExecution); err != nil {
			return err
		}
		return o.updateNodesStatus(ctx, tx, containerExecution.Id, model.StatusFailed,
			func(node *model.ExecutionNode) error {
				return SkipDownstream(ctx, tx, node.Id)
			})
	})
}

// escalateSystemError settles the container execution and its nodes as
// SYSTEM_ERROR after an unrecoverable processing failure.
func (o *Orchestrator) escalateSystemError(ctx context.Context, containerExecution *model.ContainerExecution) error {
	return o.db.Transaction(ctx, func(tx database.Interface) error {
		containerExecution.Status = model.StatusSystemError
		if err := tx.UpdateContainerExecution(ctx, containerExecution); err != nil {
			return err
		}
		return o.updateNodesStatus(ctx, tx, containerExecution.Id, model.StatusSystemError,
			func(node *model.ExecutionNode) error {
				return SkipDownstream(ctx, tx, node.Id)
			})
	})
}

// updateNodesStatus applies the status to every non-terminal execution node
// sharing the container execution, then runs perNode on each.
func (o *Orchestrator) updateNodesStatus(
	ctx context.Context,
	tx database.Interface,
	containerExecutionId int64,
	status model.ContainerExecutionStatus,
	perNode func(node *model.ExecutionNode) error,
) error {
	nodes, err := tx.GetExecutionNodesByContainerExecutionId(ctx, containerExecutionId)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if node.ContainerExecutionStatus != nil && node.ContainerExecutionStatus.IsTerminal() {
			continue
		}
		if err := tx.SetExecutionNodeStatus(ctx, node.Id, status); err != nil {
			return err
		}
		if status.IsTerminal() {
			metrics.TerminalStatesTotal.WithLabelValues(status.String()).Inc()
		}
		if perNode != nil {
			if err := perNode(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// materializeOutput inspects a finished output blob and builds its immutable
// data record. Small text outputs additionally carry their value inline.
func (o *Orchestrator) materializeOutput(ctx context.Context, uri string) (*model.ArtifactData, error) {
	var info *storage.ArtifactInfo
	err := backoff.Retry(ctx, func() error {
		var err error
		info, err = o.provider.GetInfo(ctx, uri)
		return err
	}, o.opts.RetryAttempts, o.opts.RetryInterval)
	if err != nil {
		return nil, err
	}
	outputURI := uri
	data := &model.ArtifactData{
		TotalSize: info.TotalSize,
		IsDir:     info.IsDir,
		Hash:      info.Hash(),
		Uri:       &outputURI,
		CreatedAt: time.Now(),
	}
	if !info.IsDir && info.TotalSize < maxInlineValueSize {
		raw, err := o.provider.DownloadBytes(ctx, uri)
		if err != nil {
			return nil, err
		}
		if int64(len(raw)) == info.TotalSize && utf8.Valid(raw) {
			value := string(raw)
			data.Value = &value
		}
	}
	return data, nil
}

// uploadContainerLog copies the container log next to the artifacts. Logs are
// best effort; losing one never fails the execution.
func (o *Orchestrator) uploadContainerLog(
	ctx context.Context,
	containerExecution *model.ContainerExecution,
	targetLauncher launcher.Launcher,
	container launcher.LaunchedContainer,
) {
	if containerExecution.LogUri == nil {
		return
	}
	err := backoff.Retry(ctx, func() error {
		logText, err := targetLauncher.GetLog(ctx, container)
		if err != nil {
			return err
		}
		return o.provider.UploadText(ctx, *containerExecution.LogUri, logText)
	}, o.opts.RetryAttempts, o.opts.RetryInterval)
	if err != nil {
		klog.Errorf("Failed to upload log of container execution %d: %v", containerExecution.Id, err)
	}
}

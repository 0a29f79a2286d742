/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package queryservice

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	pkgerrors "github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// ContainerState is the runtime view of one container-backed execution.
type ContainerState struct {
	ExecutionId          int64                          `json:"execution_id"`
	ContainerExecutionId int64                          `json:"container_execution_id"`
	Status               model.ContainerExecutionStatus `json:"status"`
	ExitCode             *int64                         `json:"exit_code,omitempty"`
	StartedAt            *time.Time                     `json:"started_at,omitempty"`
	EndedAt              *time.Time                     `json:"ended_at,omitempty"`
	LogUri               *string                        `json:"log_uri,omitempty"`
}

// GetContainerState reports the stored container state of an execution. The
// start and end times come from the persisted launcher handle; no runtime
// call is made.
func (s *Service) GetContainerState(ctx context.Context, executionId int64) (*ContainerState, error) {
	containerExecution, err := s.containerExecutionForNode(ctx, executionId)
	if err != nil {
		return nil, err
	}
	state := &ContainerState{
		ExecutionId:          executionId,
		ContainerExecutionId: containerExecution.Id,
		Status:               containerExecution.Status,
		ExitCode:             containerExecution.ExitCode,
		LogUri:               containerExecution.LogUri,
	}
	if len(containerExecution.LauncherData) > 0 {
		if _, container, err := s.launchers.Deserialize(containerExecution.LauncherData); err == nil {
			state.StartedAt = container.StartedAt()
			state.EndedAt = container.EndedAt()
		}
	}
	return state, nil
}

// GetContainerLog returns the container log text. Finished executions read
// the copy stored next to the artifacts; running ones ask the runtime.
func (s *Service) GetContainerLog(ctx context.Context, executionId int64) (string, error) {
	containerExecution, err := s.containerExecutionForNode(ctx, executionId)
	if err != nil {
		return "", err
	}
	if containerExecution.Status.IsTerminal() && containerExecution.LogUri != nil {
		return s.provider.DownloadText(ctx, *containerExecution.LogUri)
	}
	targetLauncher, container, err := s.launchers.Deserialize(containerExecution.LauncherData)
	if err != nil {
		return "", err
	}
	return targetLauncher.GetLog(ctx, container)
}

// StreamContainerLog returns a one-shot reader over the container log.
func (s *Service) StreamContainerLog(ctx context.Context, executionId int64) (io.ReadCloser, error) {
	containerExecution, err := s.containerExecutionForNode(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if containerExecution.Status.IsTerminal() && containerExecution.LogUri != nil {
		raw, err := s.provider.DownloadBytes(ctx, *containerExecution.LogUri)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	targetLauncher, container, err := s.launchers.Deserialize(containerExecution.LauncherData)
	if err != nil {
		return nil, err
	}
	return targetLauncher.StreamLog(ctx, container)
}

func (s *Service) containerExecutionForNode(ctx context.Context, executionId int64) (*model.ContainerExecution, error) {
	node, err := s.store.GetExecutionNode(ctx, executionId)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, pkgerrors.NewItemNotFound(pkgerrors.ExecutionKind, strconv.FormatInt(executionId, 10))
	}
	if node.ContainerExecutionId == nil {
		return nil, pkgerrors.NewItemNotFoundWithMessage("Execution has no container execution yet.")
	}
	containerExecution, err := s.store.GetContainerExecution(ctx, *node.ContainerExecutionId)
	if err != nil {
		return nil, err
	}
	if containerExecution == nil {
		return nil, pkgerrors.NewItemNotFound(pkgerrors.ContainerExecutionKind, strconv.FormatInt(*node.ContainerExecutionId, 10))
	}
	return containerExecution, nil
}

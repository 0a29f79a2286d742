/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// CreatePipelineRunRequest is the submission body: the root task plus
// run-level annotations.
type CreatePipelineRunRequest struct {
	TaskSpec    *v1.TaskSpec           `json:"task_spec" binding:"required"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

type ListPipelineRunsResponse struct {
	PipelineRuns  []*model.PipelineRun `json:"pipeline_runs"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

func (h *Handler) CreatePipelineRun(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var request CreatePipelineRunRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, errors.NewValidationErrorf("Invalid request body: %v", err)
		}
		return h.runs.Create(c.Request.Context(), request.TaskSpec, UserName(c), request.Annotations)
	})
}

func (h *Handler) GetPipelineRun(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		runId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		return h.runs.Get(c.Request.Context(), runId)
	})
}

func (h *Handler) ListPipelineRuns(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		pageSize := 0
		if raw := c.Query("page_size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return nil, errors.NewValidationError("Invalid page_size.")
			}
			pageSize = parsed
		}
		runs, nextToken, err := h.runs.List(c.Request.Context(), c.Query("page_token"), pageSize)
		if err != nil {
			return nil, err
		}
		return &ListPipelineRunsResponse{PipelineRuns: runs, NextPageToken: nextToken}, nil
	})
}

func (h *Handler) TerminatePipelineRun(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		runId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		if err := h.runs.Terminate(c.Request.Context(), runId, UserName(c)); err != nil {
			return nil, err
		}
		return h.runs.Get(c.Request.Context(), runId)
	})
}

func pathId(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationErrorf("Invalid %s in path.", name)
	}
	return id, nil
}

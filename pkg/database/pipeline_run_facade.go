/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

func (c *Client) CreatePipelineRun(ctx context.Context, run *model.PipelineRun) error {
	return c.db.WithContext(ctx).Create(run).Error
}

func (c *Client) GetPipelineRun(ctx context.Context, id int64) (*model.PipelineRun, error) {
	var run model.PipelineRun
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (c *Client) GetPipelineRunForExecution(ctx context.Context, executionId int64) (*model.PipelineRun, error) {
	ancestors := c.db.Model(&model.ExecutionToAncestorExecutionLink{}).
		Select("ancestor_execution_id").
		Where("execution_id = ?", executionId)
	var run model.PipelineRun
	err := c.db.WithContext(ctx).
		Where("root_execution_id = ?", executionId).
		Or("root_execution_id IN (?)", ancestors).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (c *Client) ListPipelineRuns(ctx context.Context, offset, limit int) ([]*model.PipelineRun, error) {
	var runs []*model.PipelineRun
	err := c.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) UpdatePipelineRun(ctx context.Context, run *model.PipelineRun) error {
	return c.db.WithContext(ctx).Save(run).Error
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

func (c *Client) CreateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error {
	return c.db.WithContext(ctx).Create(containerExecution).Error
}

func (c *Client) GetContainerExecution(ctx context.Context, id int64) (*model.ContainerExecution, error) {
	var containerExecution model.ContainerExecution
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&containerExecution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &containerExecution, nil
}

func (c *Client) UpdateContainerExecution(ctx context.Context, containerExecution *model.ContainerExecution) error {
	now := time.Now()
	containerExecution.UpdatedAt = &now
	return c.db.WithContext(ctx).Save(containerExecution).Error
}

func (c *Client) TouchContainerExecution(ctx context.Context, id int64, processedAt time.Time) error {
	return c.db.WithContext(ctx).Model(&model.ContainerExecution{}).
		Where("id = ?", id).
		Update("last_processed_at", processedAt).Error
}

func (c *Client) PickInFlightContainerExecution(ctx context.Context) (*model.ContainerExecution, error) {
	query := c.db.WithContext(ctx).
		Where("status IN ?", []model.ContainerExecutionStatus{
			model.StatusPending,
			model.StatusRunning,
		}).
		Order("last_processed_at ASC NULLS FIRST")
	if c.lockOnPick {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var containerExecution model.ContainerExecution
	err := query.First(&containerExecution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &containerExecution, nil
}

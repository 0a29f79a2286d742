/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

var (
	directDownstreamQuery = fmt.Sprintf(`SELECT en.* FROM %s oal
		JOIN %s ial ON ial.artifact_node_id = oal.artifact_node_id
		JOIN %s en ON en.id = ial.execution_id
		WHERE oal.execution_id = ?`,
		model.TableNameOutputArtifactLink,
		model.TableNameInputArtifactLink,
		model.TableNameExecutionNode)

	subtreeQuery = fmt.Sprintf(`SELECT en.* FROM %s en WHERE en.id = ?
		UNION
		SELECT en.* FROM %s en
		JOIN %s cl ON cl.execution_id = en.id
		WHERE cl.ancestor_execution_id = ?`,
		model.TableNameExecutionNode,
		model.TableNameExecutionNode,
		model.TableNameExecutionToAncestorExecutionLink)
)

func (c *Client) CreateExecutionNode(ctx context.Context, node *model.ExecutionNode) error {
	return c.db.WithContext(ctx).Create(node).Error
}

func (c *Client) GetExecutionNode(ctx context.Context, id int64) (*model.ExecutionNode, error) {
	var node model.ExecutionNode
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (c *Client) UpdateExecutionNode(ctx context.Context, node *model.ExecutionNode) error {
	return c.db.WithContext(ctx).Save(node).Error
}

func (c *Client) SetExecutionNodeStatus(ctx context.Context, id int64, status model.ContainerExecutionStatus) error {
	return c.db.WithContext(ctx).Model(&model.ExecutionNode{}).
		Where("id = ?", id).
		Update("container_execution_status", status).Error
}

func (c *Client) PickReadyExecutionNode(ctx context.Context) (*model.ExecutionNode, error) {
	query := c.db.WithContext(ctx).
		Where("container_execution_status IN ?", []model.ContainerExecutionStatus{
			model.StatusUninitialized,
			model.StatusQueued,
		})
	if c.lockOnPick {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var node model.ExecutionNode
	err := query.First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (c *Client) GetExecutionNodesByContainerExecutionId(ctx context.Context, containerExecutionId int64) ([]*model.ExecutionNode, error) {
	var nodes []*model.ExecutionNode
	err := c.db.WithContext(ctx).
		Where("container_execution_id = ?", containerExecutionId).
		Order("id ASC").
		Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) GetDirectDownstreamExecutionNodes(ctx context.Context, executionId int64) ([]*model.ExecutionNode, error) {
	var nodes []*model.ExecutionNode
	err := c.db.WithContext(ctx).Raw(directDownstreamQuery, executionId).Scan(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) GetSubtreeExecutionNodes(ctx context.Context, rootExecutionId int64) ([]*model.ExecutionNode, error) {
	var nodes []*model.ExecutionNode
	err := c.db.WithContext(ctx).Raw(subtreeQuery, rootExecutionId, rootExecutionId).Scan(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) FindCacheDonorExecutionNode(ctx context.Context, cacheKey string) (*model.ExecutionNode, error) {
	var node model.ExecutionNode
	err := c.db.WithContext(ctx).
		Where("container_execution_cache_key = ?", cacheKey).
		Where("container_execution_status = ?", model.StatusSucceeded).
		Where("container_execution_id IS NOT NULL").
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (c *Client) CreateExecutionToAncestorExecutionLink(ctx context.Context, link *model.ExecutionToAncestorExecutionLink) error {
	return c.db.WithContext(ctx).Create(link).Error
}

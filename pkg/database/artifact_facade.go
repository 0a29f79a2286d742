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

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

var (
	inputArtifactQuery = fmt.Sprintf(`SELECT ial.input_name, an.id AS node_id FROM %s ial
		JOIN %s an ON an.id = ial.artifact_node_id
		WHERE ial.execution_id = ?
		ORDER BY ial.input_name ASC`,
		model.TableNameInputArtifactLink,
		model.TableNameArtifactNode)

	outputArtifactQuery = fmt.Sprintf(`SELECT oal.output_name, an.id AS node_id FROM %s oal
		JOIN %s an ON an.id = oal.artifact_node_id
		WHERE oal.execution_id = ?
		ORDER BY oal.output_name ASC`,
		model.TableNameOutputArtifactLink,
		model.TableNameArtifactNode)
)

func (c *Client) CreateArtifactData(ctx context.Context, data *model.ArtifactData) error {
	return c.db.WithContext(ctx).Create(data).Error
}

func (c *Client) GetArtifactData(ctx context.Context, id int64) (*model.ArtifactData, error) {
	var data model.ArtifactData
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&data).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &data, nil
}

func (c *Client) CreateArtifactNode(ctx context.Context, node *model.ArtifactNode) error {
	return c.db.WithContext(ctx).Create(node).Error
}

func (c *Client) GetArtifactNode(ctx context.Context, id int64) (*model.ArtifactNode, error) {
	var node model.ArtifactNode
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (c *Client) AttachArtifactData(ctx context.Context, artifactNodeId, artifactDataId int64) error {
	return c.db.WithContext(ctx).Model(&model.ArtifactNode{}).
		Where("id = ?", artifactNodeId).
		Updates(map[string]interface{}{
			"artifact_data_id": artifactDataId,
			"had_data_in_past": true,
		}).Error
}

func (c *Client) CreateInputArtifactLink(ctx context.Context, link *model.InputArtifactLink) error {
	return c.db.WithContext(ctx).Create(link).Error
}

func (c *Client) CreateOutputArtifactLink(ctx context.Context, link *model.OutputArtifactLink) error {
	return c.db.WithContext(ctx).Create(link).Error
}

type artifactLinkRow struct {
	InputName  string `gorm:"column:input_name"`
	OutputName string `gorm:"column:output_name"`
	NodeId     int64  `gorm:"column:node_id"`
}

func (c *Client) GetExecutionInputArtifacts(ctx context.Context, executionId int64) ([]*InputArtifact, error) {
	var rows []artifactLinkRow
	err := c.db.WithContext(ctx).Raw(inputArtifactQuery, executionId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*InputArtifact, 0, len(rows))
	for _, row := range rows {
		node, err := c.GetArtifactNode(ctx, row.NodeId)
		if err != nil {
			return nil, err
		}
		artifact := &InputArtifact{InputName: row.InputName, Node: node}
		if node != nil && node.ArtifactDataId != nil {
			if artifact.Data, err = c.GetArtifactData(ctx, *node.ArtifactDataId); err != nil {
				return nil, err
			}
		}
		result = append(result, artifact)
	}
	return result, nil
}

func (c *Client) GetExecutionOutputArtifacts(ctx context.Context, executionId int64) ([]*OutputArtifact, error) {
	var rows []artifactLinkRow
	err := c.db.WithContext(ctx).Raw(outputArtifactQuery, executionId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*OutputArtifact, 0, len(rows))
	for _, row := range rows {
		node, err := c.GetArtifactNode(ctx, row.NodeId)
		if err != nil {
			return nil, err
		}
		result = append(result, &OutputArtifact{OutputName: row.OutputName, Node: node})
	}
	return result, nil
}

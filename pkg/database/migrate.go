/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package database

import (
	"gorm.io/gorm"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database/model"
)

// AutoMigrate creates or updates the schema for every persisted entity,
// including the cache-key and queue indexes declared on the models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.PipelineRun{},
		&model.ExecutionNode{},
		&model.ArtifactNode{},
		&model.ArtifactData{},
		&model.InputArtifactLink{},
		&model.OutputArtifactLink{},
		&model.ExecutionToAncestorExecutionLink{},
		&model.ContainerExecution{},
	)
}

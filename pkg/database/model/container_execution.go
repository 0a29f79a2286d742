/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

import (
	"encoding/json"
	"time"
)

const TableNameContainerExecution = "container_executions"

// ContainerExecution is one attempt at running a container task. Several
// execution nodes may share one row through cache reuse.
type ContainerExecution struct {
	Id                    int64                    `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	Status                ContainerExecutionStatus `gorm:"column:status;size:32;not null;index:ix_container_executions_status_last_processed_at,priority:1" json:"status" db:"status"`
	LastProcessedAt       *time.Time               `gorm:"column:last_processed_at;index:ix_container_executions_status_last_processed_at,priority:2" json:"last_processed_at,omitempty" db:"last_processed_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;not null" json:"created_at" db:"created_at"`
	UpdatedAt             *time.Time               `gorm:"column:updated_at" json:"updated_at,omitempty" db:"updated_at"`
	LauncherData          json.RawMessage          `gorm:"column:launcher_data;type:jsonb" json:"launcher_data,omitempty" db:"launcher_data"`
	InputArtifactDataMap  InputArtifactInfoMap     `gorm:"column:input_artifact_data_map;type:jsonb" json:"input_artifact_data_map,omitempty" db:"input_artifact_data_map"`
	OutputArtifactDataMap OutputArtifactInfoMap    `gorm:"column:output_artifact_data_map;type:jsonb" json:"output_artifact_data_map,omitempty" db:"output_artifact_data_map"`
	LogUri                *string                  `gorm:"column:log_uri;size:4096" json:"log_uri,omitempty" db:"log_uri"`
	ExitCode              *int64                   `gorm:"column:exit_code" json:"exit_code,omitempty" db:"exit_code"`
}

func (*ContainerExecution) TableName() string {
	return TableNameContainerExecution
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

import (
	"time"
)

const TableNamePipelineRun = "pipeline_runs"

// PipelineRun is one submission of a root task.
type PipelineRun struct {
	Id              int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	RootExecutionId int64      `gorm:"column:root_execution_id;not null;index" json:"root_execution_id" db:"root_execution_id"`
	Annotations     JSONMap    `gorm:"column:annotations;type:jsonb" json:"annotations,omitempty" db:"annotations"`
	CreatedBy       string     `gorm:"column:created_by;size:256" json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null" json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null" json:"updated_at" db:"updated_at"`
	TerminatedBy    string     `gorm:"column:terminated_by;size:256" json:"terminated_by,omitempty" db:"terminated_by"`
	TerminatedAt    *time.Time `gorm:"column:terminated_at" json:"terminated_at,omitempty" db:"terminated_at"`
}

func (*PipelineRun) TableName() string {
	return TableNamePipelineRun
}

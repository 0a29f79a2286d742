/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

import (
	"encoding/json"
)

const TableNameExecutionNode = "execution_nodes"

// ExecutionNode is one compiled task instance, container or graph. The
// container fields stay NULL for graph nodes.
type ExecutionNode struct {
	Id                         int64                     `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	TaskSpec                   json.RawMessage           `gorm:"column:task_spec;type:jsonb;not null" json:"task_spec" db:"task_spec"`
	ParentExecutionId          *int64                    `gorm:"column:parent_execution_id;index" json:"parent_execution_id,omitempty" db:"parent_execution_id"`
	TaskIdInParentExecution    *string                   `gorm:"column:task_id_in_parent_execution;size:256" json:"task_id_in_parent_execution,omitempty" db:"task_id_in_parent_execution"`
	ContainerExecutionStatus   *ContainerExecutionStatus `gorm:"column:container_execution_status;size:32;index" json:"container_execution_status,omitempty" db:"container_execution_status"`
	ContainerExecutionCacheKey *string                   `gorm:"column:container_execution_cache_key;size:256;index:ix_execution_nodes_container_execution_cache_key" json:"container_execution_cache_key,omitempty" db:"container_execution_cache_key"`
	ContainerExecutionId       *int64                    `gorm:"column:container_execution_id;index" json:"container_execution_id,omitempty" db:"container_execution_id"`
}

func (*ExecutionNode) TableName() string {
	return TableNameExecutionNode
}

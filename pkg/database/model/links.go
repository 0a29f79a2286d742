/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

const (
	TableNameInputArtifactLink                = "input_artifact_links"
	TableNameOutputArtifactLink               = "output_artifact_links"
	TableNameExecutionToAncestorExecutionLink = "execution_to_ancestor_execution_links"
)

// InputArtifactLink connects an execution input to the artifact node feeding it.
type InputArtifactLink struct {
	Id             int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	ExecutionId    int64  `gorm:"column:execution_id;not null;index" json:"execution_id" db:"execution_id"`
	InputName      string `gorm:"column:input_name;size:256;not null" json:"input_name" db:"input_name"`
	ArtifactNodeId int64  `gorm:"column:artifact_node_id;not null;index" json:"artifact_node_id" db:"artifact_node_id"`
}

func (*InputArtifactLink) TableName() string {
	return TableNameInputArtifactLink
}

// OutputArtifactLink connects an execution output to the artifact node it produces.
type OutputArtifactLink struct {
	Id             int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	ExecutionId    int64  `gorm:"column:execution_id;not null;index" json:"execution_id" db:"execution_id"`
	OutputName     string `gorm:"column:output_name;size:256;not null" json:"output_name" db:"output_name"`
	ArtifactNodeId int64  `gorm:"column:artifact_node_id;not null;index" json:"artifact_node_id" db:"artifact_node_id"`
}

func (*OutputArtifactLink) TableName() string {
	return TableNameOutputArtifactLink
}

// ExecutionToAncestorExecutionLink is the ancestor closure populated at
// compile time: one row per (execution, proper ancestor) pair.
type ExecutionToAncestorExecutionLink struct {
	Id                  int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	ExecutionId         int64 `gorm:"column:execution_id;not null;index" json:"execution_id" db:"execution_id"`
	AncestorExecutionId int64 `gorm:"column:ancestor_execution_id;not null;index" json:"ancestor_execution_id" db:"ancestor_execution_id"`
}

func (*ExecutionToAncestorExecutionLink) TableName() string {
	return TableNameExecutionToAncestorExecutionLink
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

import (
	"encoding/json"
	"time"
)

const (
	TableNameArtifactNode = "artifact_nodes"
	TableNameArtifactData = "artifact_data"
)

// ArtifactNode is an edge endpoint in the data-flow graph. It may point at
// materialized ArtifactData once its producer has succeeded.
type ArtifactNode struct {
	Id                  int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	TypeName            *string         `gorm:"column:type_name;size:256" json:"type_name,omitempty" db:"type_name"`
	TypeProperties      json.RawMessage `gorm:"column:type_properties;type:jsonb" json:"type_properties,omitempty" db:"type_properties"`
	ProducerExecutionId *int64          `gorm:"column:producer_execution_id;index" json:"producer_execution_id,omitempty" db:"producer_execution_id"`
	ProducerOutputName  *string         `gorm:"column:producer_output_name;size:256" json:"producer_output_name,omitempty" db:"producer_output_name"`
	ArtifactDataId      *int64          `gorm:"column:artifact_data_id;index" json:"artifact_data_id,omitempty" db:"artifact_data_id"`
	HadDataInPast       bool            `gorm:"column:had_data_in_past;not null;default:false" json:"had_data_in_past" db:"had_data_in_past"`
}

func (*ArtifactNode) TableName() string {
	return TableNameArtifactNode
}

// ArtifactData is immutable materialized artifact content metadata. Small
// text artifacts carry their value inline.
type ArtifactData struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	TotalSize int64     `gorm:"column:total_size;not null" json:"total_size" db:"total_size"`
	IsDir     bool      `gorm:"column:is_dir;not null;default:false" json:"is_dir" db:"is_dir"`
	Hash      string    `gorm:"column:hash;size:256;not null" json:"hash" db:"hash"`
	Uri       *string   `gorm:"column:uri;size:4096" json:"uri,omitempty" db:"uri"`
	Value     *string   `gorm:"column:value" json:"value,omitempty" db:"value"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at" db:"created_at"`
}

func (*ArtifactData) TableName() string {
	return TableNameArtifactData
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ContainerExecutionStatus is the lifecycle state shared by ExecutionNode
// (nullable, container nodes only) and ContainerExecution.
type ContainerExecutionStatus string

const (
	StatusUninitialized      ContainerExecutionStatus = "UNINITIALIZED"
	StatusWaitingForUpstream ContainerExecutionStatus = "WAITING_FOR_UPSTREAM"
	StatusQueued             ContainerExecutionStatus = "QUEUED"
	StatusPending            ContainerExecutionStatus = "PENDING"
	StatusRunning            ContainerExecutionStatus = "RUNNING"
	StatusSucceeded          ContainerExecutionStatus = "SUCCEEDED"
	StatusFailed             ContainerExecutionStatus = "FAILED"
	StatusSkipped            ContainerExecutionStatus = "SKIPPED"
	StatusSystemError        ContainerExecutionStatus = "SYSTEM_ERROR"
	StatusCancelled          ContainerExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s ContainerExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusSystemError, StatusCancelled:
		return true
	}
	return false
}

func (s ContainerExecutionStatus) String() string {
	return string(s)
}

func StatusPtr(s ContainerExecutionStatus) *ContainerExecutionStatus {
	return &s
}

// JSONMap stores arbitrary JSON objects in a jsonb column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, err := rawJSONBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

// InputArtifactInfo is the per-input snapshot embedded into a container
// execution at launch time. The value and uri reflect any population the
// launcher performed while preparing the command line.
type InputArtifactInfo struct {
	Id        int64   `json:"id"`
	IsDir     bool    `json:"is_dir"`
	TotalSize int64   `json:"total_size"`
	Hash      string  `json:"hash"`
	Value     *string `json:"value"`
	Uri       *string `json:"uri"`
}

type InputArtifactInfoMap map[string]InputArtifactInfo

func (m InputArtifactInfoMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *InputArtifactInfoMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, err := rawJSONBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

// OutputArtifactInfo records where a declared output will be written.
type OutputArtifactInfo struct {
	Uri string `json:"uri"`
}

type OutputArtifactInfoMap map[string]OutputArtifactInfo

func (m OutputArtifactInfoMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *OutputArtifactInfoMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, err := rawJSONBytes(value)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

func rawJSONBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TaskMap maps task ids to task specs while remembering declaration order.
// Deterministic topological sorting depends on that order.
type TaskMap struct {
	ids   []string
	tasks map[string]*TaskSpec
}

func NewTaskMap() TaskMap {
	return TaskMap{tasks: map[string]*TaskSpec{}}
}

func (m *TaskMap) Set(id string, task *TaskSpec) {
	if m.tasks == nil {
		m.tasks = map[string]*TaskSpec{}
	}
	if _, exists := m.tasks[id]; !exists {
		m.ids = append(m.ids, id)
	}
	m.tasks[id] = task
}

func (m *TaskMap) Get(id string) (*TaskSpec, bool) {
	task, ok := m.tasks[id]
	return task, ok
}

// Ids returns the task ids in declaration order.
func (m *TaskMap) Ids() []string {
	result := make([]string, len(m.ids))
	copy(result, m.ids)
	return result
}

func (m *TaskMap) Len() int {
	return len(m.ids)
}

func (m TaskMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.tasks[id])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *TaskMap) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tasks must be a JSON object")
	}
	m.ids = nil
	m.tasks = map[string]*TaskSpec{}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		id, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("task id must be a string")
		}
		task := &TaskSpec{}
		if err := decoder.Decode(task); err != nil {
			return fmt.Errorf("task %q does not parse: %w", id, err)
		}
		m.Set(id, task)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}

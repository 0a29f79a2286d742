/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"testing"

	"gotest.tools/assert"
)

func TestMergeAnnotationsRightWins(t *testing.T) {
	left := map[string]interface{}{"a": "1", "b": "left"}
	right := map[string]interface{}{"b": "right", "c": "3"}
	merged := MergeAnnotations(left, right)
	assert.DeepEqual(t, merged, map[string]interface{}{"a": "1", "b": "right", "c": "3"})
}

func TestMergeAnnotationsMergesNestedMaps(t *testing.T) {
	left := map[string]interface{}{
		"resources": map[string]interface{}{"cpu": "2", "memory": "4Gi"},
	}
	right := map[string]interface{}{
		"resources": map[string]interface{}{"memory": "8Gi", "gpu": "1"},
	}
	merged := MergeAnnotations(left, right)
	assert.DeepEqual(t, merged, map[string]interface{}{
		"resources": map[string]interface{}{"cpu": "2", "memory": "8Gi", "gpu": "1"},
	})
}

func TestMergeAnnotationsReplacesLists(t *testing.T) {
	left := map[string]interface{}{"tolerations": []interface{}{"a", "b"}}
	right := map[string]interface{}{"tolerations": []interface{}{"c"}}
	merged := MergeAnnotations(left, right)
	assert.DeepEqual(t, merged, map[string]interface{}{"tolerations": []interface{}{"c"}})
}

func TestMergeAnnotationsLeavesInputsUnmodified(t *testing.T) {
	left := map[string]interface{}{"key": map[string]interface{}{"a": "1"}}
	right := map[string]interface{}{"key": map[string]interface{}{"b": "2"}}
	MergeAnnotations(left, right)
	assert.DeepEqual(t, left, map[string]interface{}{"key": map[string]interface{}{"a": "1"}})
	assert.DeepEqual(t, right, map[string]interface{}{"key": map[string]interface{}{"b": "2"}})
}

func TestMergeAnnotationsNilInputs(t *testing.T) {
	assert.Assert(t, MergeAnnotations(nil, nil) == nil)
	assert.DeepEqual(t, MergeAnnotations(nil, map[string]interface{}{"a": "1"}),
		map[string]interface{}{"a": "1"})
	assert.DeepEqual(t, MergeAnnotations(map[string]interface{}{"a": "1"}, nil),
		map[string]interface{}{"a": "1"})
}

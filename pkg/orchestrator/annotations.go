/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

// MergeAnnotations overlays the right map onto the left one. Nested maps are
// merged recursively; any other value, lists included, is replaced by the
// right side. Neither input is modified.
func MergeAnnotations(left, right map[string]interface{}) map[string]interface{} {
	if left == nil && right == nil {
		return nil
	}
	merged := map[string]interface{}{}
	for key, value := range left {
		merged[key] = value
	}
	for key, value := range right {
		leftMap, leftOk := merged[key].(map[string]interface{})
		rightMap, rightOk := value.(map[string]interface{})
		if leftOk && rightOk {
			merged[key] = MergeAnnotations(leftMap, rightMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

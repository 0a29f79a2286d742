/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package compiler

import (
	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// toposortTasks orders the graph's child tasks so that every TaskOutputArgument
// source precedes its consumers. Iteration follows task declaration order, so
// the result is deterministic. Unknown task references and cycles abort
// compilation.
func toposortTasks(tasks v1.TaskMap) ([]string, error) {
	taskIds := tasks.Ids()
	// Ordered slices instead of sets to keep the ordering stable.
	dependencies := map[string][]string{}
	dependents := map[string][]string{}
	for _, taskId := range taskIds {
		task, _ := tasks.Get(taskId)
		seen := map[string]bool{}
		for _, argument := range task.Arguments {
			if argument.TaskOutput == nil {
				continue
			}
			upstreamId := argument.TaskOutput.TaskId
			if _, ok := tasks.Get(upstreamId); !ok {
				return nil, errors.NewValidationErrorf(
					"Task %q references non-existing task %q.", taskId, upstreamId)
			}
			if !seen[upstreamId] {
				seen[upstreamId] = true
				dependencies[taskId] = append(dependencies[taskId], upstreamId)
				dependents[upstreamId] = append(dependents[upstreamId], taskId)
			}
		}
	}

	remaining := map[string]int{}
	for _, taskId := range taskIds {
		remaining[taskId] = len(dependencies[taskId])
	}
	var sorted []string
	sortedSet := map[string]bool{}
	var process func(taskId string)
	process = func(taskId string) {
		if remaining[taskId] != 0 || sortedSet[taskId] {
			return
		}
		sortedSet[taskId] = true
		sorted = append(sorted, taskId)
		for _, dependent := range dependents[taskId] {
			remaining[dependent]--
			process(dependent)
		}
	}
	for _, taskId := range taskIds {
		process(taskId)
	}

	if len(sorted) != len(taskIds) {
		// Report the unsatisfied task closest to being schedulable.
		blocked := ""
		for _, taskId := range taskIds {
			if remaining[taskId] <= 0 {
				continue
			}
			if blocked == "" || remaining[taskId] < remaining[blocked] {
				blocked = taskId
			}
		}
		return nil, errors.NewValidationErrorf("Task %q has cyclical dependency.", blocked)
	}
	return sorted, nil
}

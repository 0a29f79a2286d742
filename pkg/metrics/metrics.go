/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the Prometheus instrumentation of the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipelines",
		Subsystem: "orchestrator",
		Name:      "sweeps_total",
		Help:      "Number of queue sweeps, by queue and outcome.",
	}, []string{"queue", "outcome"})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipelines",
		Subsystem: "orchestrator",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one queue sweep.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"queue"})

	LaunchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipelines",
		Subsystem: "orchestrator",
		Name:      "launches_total",
		Help:      "Number of container launches.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipelines",
		Subsystem: "orchestrator",
		Name:      "cache_hits_total",
		Help:      "Number of executions satisfied by cache adoption.",
	})

	TerminalStatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipelines",
		Subsystem: "orchestrator",
		Name:      "terminal_states_total",
		Help:      "Number of execution nodes reaching a terminal state.",
	}, []string{"status"})

	PipelineRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pipelines",
		Subsystem: "apiserver",
		Name:      "pipeline_runs_total",
		Help:      "Number of submitted pipeline runs.",
	})
)

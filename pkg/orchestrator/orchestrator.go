/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package orchestrator advances execution nodes through the container
// lifecycle. It holds no state between sweeps; both queues are defined by
// database queries, so a restart is equivalent to a pause.
package orchestrator

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/metrics"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

// maxInlineValueSize is the threshold below which output artifact values are
// copied inline into the database.
const maxInlineValueSize = 256

// Options configures one orchestrator instance.
type Options struct {
	DataRoot string
	LogsRoot string
	// DefaultLauncherKind selects the launcher used for new launches.
	DefaultLauncherKind string
	// DefaultTaskAnnotations seed the annotations passed to the launcher;
	// run and task annotations are merged on top.
	DefaultTaskAnnotations map[string]interface{}
	// CacheEnabled turns on cache adoption during the ready sweep.
	CacheEnabled bool
	SweepInterval time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// Orchestrator sweeps the ready and in-flight queues.
type Orchestrator struct {
	db        database.Interface
	launchers launcher.Registry
	provider  storage.Provider
	opts      Options
}

func New(db database.Interface, launchers launcher.Registry, provider storage.Provider, opts Options) *Orchestrator {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 5
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	return &Orchestrator{db: db, launchers: launchers, provider: provider, opts: opts}
}

func (o *Orchestrator) defaultLauncher() (launcher.Launcher, error) {
	return o.launchers.Get(o.opts.DefaultLauncherKind)
}

// Run sweeps both queues until the context is cancelled. Each sweep loop
// drains its queue, then sleeps for the sweep interval.
func (o *Orchestrator) Run(ctx context.Context) {
	var waitGroup wait.Group
	waitGroup.StartWithContext(ctx, func(ctx context.Context) {
		wait.UntilWithContext(ctx, o.drainReadyQueue, o.opts.SweepInterval)
	})
	waitGroup.StartWithContext(ctx, func(ctx context.Context) {
		wait.UntilWithContext(ctx, o.drainInFlightQueue, o.opts.SweepInterval)
	})
	waitGroup.Wait()
}

// drainReadyQueue processes ready nodes one at a time until the queue is
// empty. Errors are logged and swallowed so the sweeper never dies.
func (o *Orchestrator) drainReadyQueue(ctx context.Context) {
	for ctx.Err() == nil {
		start := time.Now()
		processed, err := o.SweepReadyNode(ctx)
		metrics.SweepDuration.WithLabelValues("ready").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SweepsTotal.WithLabelValues("ready", "error").Inc()
			klog.Errorf("Ready queue sweep failed: %v", err)
			return
		}
		if !processed {
			return
		}
		metrics.SweepsTotal.WithLabelValues("ready", "processed").Inc()
	}
}

// drainInFlightQueue refreshes a single container per tick. In-flight
// containers stay in the queue until terminal, so draining until empty would
// poll the runtime in a tight loop; the last_processed_at ordering already
// guarantees round-robin coverage.
func (o *Orchestrator) drainInFlightQueue(ctx context.Context) {
	start := time.Now()
	processed, err := o.SweepInFlightContainer(ctx)
	metrics.SweepDuration.WithLabelValues("in_flight").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("in_flight", "error").Inc()
		klog.Errorf("In-flight queue sweep failed: %v", err)
		return
	}
	if processed {
		metrics.SweepsTotal.WithLabelValues("in_flight", "processed").Inc()
	}
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package backoff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs f with constant intervals until it succeeds, the attempt budget
// is exhausted, or the context is cancelled. The last error is returned.
func Retry(ctx context.Context, f backoff.Operation, maxAttempts int, interval time.Duration) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)), ctx)
	return backoff.Retry(f, b)
}

// RetryExponential runs f with exponential intervals bounded by maxElapsedTime.
func RetryExponential(f backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	if err := backoff.Retry(f, b); err != nil {
		return err
	}
	return nil
}

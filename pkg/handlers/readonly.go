/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"sync/atomic"
)

// ReadOnlyState is the runtime read-only switch. It starts from the config
// value and can be flipped through the admin API without a restart.
type ReadOnlyState struct {
	enabled atomic.Bool
}

func NewReadOnlyState(enabled bool) *ReadOnlyState {
	state := &ReadOnlyState{}
	state.enabled.Store(enabled)
	return state
}

func (s *ReadOnlyState) Enabled() bool {
	return s.enabled.Load()
}

func (s *ReadOnlyState) Set(enabled bool) {
	s.enabled.Store(enabled)
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package launcher defines the contract between the orchestrator and the
// container runtimes executing component tasks.
package launcher

import (
	"context"
	"io"
	"time"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// ContainerStatus is the runtime-reported state of a launched container.
type ContainerStatus string

const (
	ContainerPending   ContainerStatus = "PENDING"
	ContainerRunning   ContainerStatus = "RUNNING"
	ContainerSucceeded ContainerStatus = "SUCCEEDED"
	ContainerFailed    ContainerStatus = "FAILED"
	ContainerError     ContainerStatus = "ERROR"
)

// MaxInputValueSize caps the artifacts that may be consumed by value on a
// command line.
const MaxInputValueSize = 10000

// InputArgument carries one resolved input into a launch. The launcher may
// populate Value (after downloading the data) or Uri (after uploading an
// inline value to StagingUri); the caller persists such updates.
type InputArgument struct {
	TotalSize  int64
	IsDir      bool
	Value      *string
	Uri        *string
	StagingUri string
}

// LaunchRequest is everything a launcher needs to start one container task.
type LaunchRequest struct {
	ComponentSpec  *v1.ComponentSpec
	InputArguments map[string]*InputArgument
	OutputURIs     map[string]string
	LogURI         string
	Annotations    map[string]interface{}
}

// LaunchedContainer is an opaque handle to a started container. Handles are
// pure data; all operations on them go through the owning Launcher.
type LaunchedContainer interface {
	Kind() string
	Status() ContainerStatus
	ExitCode() *int64
	StartedAt() *time.Time
	EndedAt() *time.Time
	// SerializePayload round-trips through Launcher.DeserializePayload.
	SerializePayload() ([]byte, error)
}

// Launcher starts and tracks containers on one runtime.
type Launcher interface {
	Kind() string
	Launch(ctx context.Context, req *LaunchRequest) (LaunchedContainer, error)
	// Refresh returns a handle with up-to-date runtime status. The input
	// handle is not modified.
	Refresh(ctx context.Context, container LaunchedContainer) (LaunchedContainer, error)
	GetLog(ctx context.Context, container LaunchedContainer) (string, error)
	// StreamLog reads the log once; it is not restartable.
	StreamLog(ctx context.Context, container LaunchedContainer) (io.ReadCloser, error)
	Terminate(ctx context.Context, container LaunchedContainer) error
	DeserializePayload(payload []byte) (LaunchedContainer, error)
}

// Registry resolves launchers by kind for handle deserialization.
type Registry map[string]Launcher

func (r Registry) Register(launcher Launcher) Registry {
	r[launcher.Kind()] = launcher
	return r
}

func (r Registry) Get(kind string) (Launcher, error) {
	launcher, ok := r[kind]
	if !ok {
		return nil, errors.NewLauncherErrorf("no launcher registered for kind %q", kind)
	}
	return launcher, nil
}

// Deserialize parses a tagged handle envelope and resolves both the launcher
// and the handle.
func (r Registry) Deserialize(data []byte) (Launcher, LaunchedContainer, error) {
	envelope, err := parseEnvelope(data)
	if err != nil {
		return nil, nil, err
	}
	launcher, err := r.Get(envelope.Kind)
	if err != nil {
		return nil, nil, err
	}
	container, err := launcher.DeserializePayload(envelope.Payload)
	if err != nil {
		return nil, nil, err
	}
	return launcher, container, nil
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package orchestrator

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

// memoryProvider is an in-memory blob store for tests.
type memoryProvider struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{blobs: map[string][]byte{}}
}

func (p *memoryProvider) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.blobs[uri]
	if !ok {
		return nil, errors.NewStorageErrorf("blob %q does not exist", uri)
	}
	return append([]byte{}, data...), nil
}

func (p *memoryProvider) DownloadText(ctx context.Context, uri string) (string, error) {
	data, err := p.DownloadBytes(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *memoryProvider) UploadBytes(ctx context.Context, uri string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[uri] = append([]byte{}, data...)
	return nil
}

func (p *memoryProvider) UploadText(ctx context.Context, uri string, text string) error {
	return p.UploadBytes(ctx, uri, []byte(text))
}

func (p *memoryProvider) GetInfo(ctx context.Context, uri string) (*storage.ArtifactInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.blobs[uri]
	if !ok {
		return nil, errors.NewStorageErrorf("blob %q does not exist", uri)
	}
	digest := md5.Sum(data)
	return &storage.ArtifactInfo{
		TotalSize: int64(len(data)),
		Hashes:    map[string]string{storage.HashAlgorithmMD5: hex.EncodeToString(digest[:])},
	}, nil
}

var _ storage.Provider = &memoryProvider{}

const fakeLauncherKind = "fake"

type fakeContainerState struct {
	status   launcher.ContainerStatus
	exitCode *int64
	log      string
	started  *time.Time
	ended    *time.Time
}

// fakeLauncher runs no containers; tests move container states by hand.
type fakeLauncher struct {
	mu         sync.Mutex
	nextId     int
	states     map[string]*fakeContainerState
	requests   map[string]*launcher.LaunchRequest
	launches   int
	refreshed  []string
	terminated []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		states:   map[string]*fakeContainerState{},
		requests: map[string]*launcher.LaunchRequest{},
	}
}

type fakeContainer struct {
	ContainerId string `json:"container_id"`
	state       fakeContainerState
}

func (c *fakeContainer) Kind() string                      { return fakeLauncherKind }
func (c *fakeContainer) Status() launcher.ContainerStatus  { return c.state.status }
func (c *fakeContainer) ExitCode() *int64                  { return c.state.exitCode }
func (c *fakeContainer) StartedAt() *time.Time             { return c.state.started }
func (c *fakeContainer) EndedAt() *time.Time               { return c.state.ended }
func (c *fakeContainer) SerializePayload() ([]byte, error) { return json.Marshal(c) }

func (l *fakeLauncher) Kind() string { return fakeLauncherKind }

func (l *fakeLauncher) Launch(ctx context.Context, req *launcher.LaunchRequest) (launcher.LaunchedContainer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextId++
	l.launches++
	containerId := strconv.Itoa(l.nextId)
	state := &fakeContainerState{status: launcher.ContainerPending}
	l.states[containerId] = state
	l.requests[containerId] = req
	return &fakeContainer{ContainerId: containerId, state: *state}, nil
}

func (l *fakeLauncher) Refresh(ctx context.Context, container launcher.LaunchedContainer) (launcher.LaunchedContainer, error) {
	handle := container.(*fakeContainer)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshed = append(l.refreshed, handle.ContainerId)
	state, ok := l.states[handle.ContainerId]
	if !ok {
		return nil, errors.NewLauncherErrorf("container %q does not exist", handle.ContainerId)
	}
	return &fakeContainer{ContainerId: handle.ContainerId, state: *state}, nil
}

func (l *fakeLauncher) GetLog(ctx context.Context, container launcher.LaunchedContainer) (string, error) {
	handle := container.(*fakeContainer)
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.states[handle.ContainerId]
	if !ok {
		return "", errors.NewLauncherErrorf("container %q does not exist", handle.ContainerId)
	}
	return state.log, nil
}

func (l *fakeLauncher) StreamLog(ctx context.Context, container launcher.LaunchedContainer) (io.ReadCloser, error) {
	log, err := l.GetLog(ctx, container)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader([]byte(log))), nil
}

func (l *fakeLauncher) Terminate(ctx context.Context, container launcher.LaunchedContainer) error {
	handle := container.(*fakeContainer)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.terminated = append(l.terminated, handle.ContainerId)
	return nil
}

func (l *fakeLauncher) DeserializePayload(payload []byte) (launcher.LaunchedContainer, error) {
	var handle fakeContainer
	if err := json.Unmarshal(payload, &handle); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if state, ok := l.states[handle.ContainerId]; ok {
		handle.state = *state
	}
	return &handle, nil
}

// setState moves a launched container to the given status.
func (l *fakeLauncher) setState(containerId string, status launcher.ContainerStatus, exitCode *int64, log string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.states[containerId]
	state.status = status
	state.exitCode = exitCode
	state.log = log
	now := time.Now()
	if state.started == nil {
		state.started = &now
	}
	switch status {
	case launcher.ContainerSucceeded, launcher.ContainerFailed:
		state.ended = &now
	}
}

// request returns the launch request recorded for a container id.
func (l *fakeLauncher) request(containerId string) *launcher.LaunchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[containerId]
}

var _ launcher.Launcher = &fakeLauncher{}

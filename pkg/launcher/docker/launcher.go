/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package docker launches container tasks on a local Docker daemon with bind
// mounts for artifact passing. It pairs with the local storage provider and
// exists mainly for development deployments.
package docker

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

const Kind = "docker"

// Launcher implements launcher.Launcher on a Docker daemon.
type Launcher struct {
	client   client.APIClient
	provider storage.Provider
}

var _ launcher.Launcher = &Launcher{}

func NewLauncher(dockerHost string, provider storage.Provider) (*Launcher, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if dockerHost != "" {
		opts = append(opts, client.WithHost(dockerHost))
	}
	dockerClient, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to create docker client: %v", err)
	}
	return &Launcher{client: dockerClient, provider: provider}, nil
}

func NewLauncherWithClient(dockerClient client.APIClient, provider storage.Provider) *Launcher {
	return &Launcher{client: dockerClient, provider: provider}
}

func (l *Launcher) Kind() string {
	return Kind
}

func (l *Launcher) Launch(ctx context.Context, req *launcher.LaunchRequest) (launcher.LaunchedContainer, error) {
	if req.ComponentSpec.Implementation == nil || req.ComponentSpec.Implementation.Container == nil {
		return nil, errors.NewLauncherError("component has no container implementation")
	}
	containerSpec := req.ComponentSpec.Implementation.Container

	var mounts []mount.Mount
	addMount := func(containerPath, artifactURI string, readOnly bool) error {
		containerDir, containerFile := path.Split(containerPath)
		hostDir, artifactFile := path.Split(strings.TrimPrefix(artifactURI, "file://"))
		if containerFile != artifactFile {
			return errors.NewLauncherErrorf(
				"container file name %q differs from artifact file name %q", containerFile, artifactFile)
		}
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   strings.TrimRight(hostDir, "/"),
			Target:   strings.TrimRight(containerDir, "/"),
			ReadOnly: readOnly,
		})
		return nil
	}

	providedInputs := map[string]bool{}
	for name := range req.InputArguments {
		providedInputs[name] = true
	}
	resolver := &launcher.PlaceholderResolver{
		GetInputValue: launcher.InputValueGetter(ctx, l.provider, req.InputArguments),
		GetInputPath: func(inputName string) (string, error) {
			uri, err := launcher.StageInputURI(ctx, l.provider, inputName, req.InputArguments[inputName])
			if err != nil {
				return "", err
			}
			containerPath := launcher.ContainerInputPath(inputName)
			if err := addMount(containerPath, uri, true); err != nil {
				return "", err
			}
			return containerPath, nil
		},
		GetOutputPath: func(outputName string) (string, error) {
			containerPath := launcher.ContainerOutputPath(outputName)
			if err := addMount(containerPath, req.OutputURIs[outputName], false); err != nil {
				return "", err
			}
			return containerPath, nil
		},
	}
	resolved, err := launcher.ResolveCommandLine(req.ComponentSpec, providedInputs, resolver)
	if err != nil {
		return nil, err
	}

	// Bind mounts require the host directories to exist up front.
	for _, outputURI := range req.OutputURIs {
		hostDir, _ := path.Split(strings.TrimPrefix(outputURI, "file://"))
		if err := os.MkdirAll(hostDir, 0o755); err != nil {
			return nil, errors.NewLauncherErrorf("failed to create output directory %q: %v", hostDir, err)
		}
	}

	var env []string
	for name, value := range resolved.Env {
		env = append(env, name+"="+value)
	}

	if pullReader, err := l.client.ImagePull(ctx, containerSpec.Image, image.PullOptions{}); err == nil {
		_, _ = io.Copy(io.Discard, pullReader)
		pullReader.Close()
	} else {
		klog.Warningf("Failed to pull image %s, trying the local image: %v", containerSpec.Image, err)
	}

	created, err := l.client.ContainerCreate(ctx,
		&container.Config{
			Image:      containerSpec.Image,
			Entrypoint: resolved.Command,
			Env:        env,
		},
		&container.HostConfig{Mounts: mounts},
		nil, nil, "")
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to create container: %v", err)
	}
	if err := l.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, errors.NewLauncherErrorf("failed to start container %s: %v", created.ID, err)
	}
	klog.Infof("Started docker container %s", created.ID)

	handle := &LaunchedDockerContainer{
		ContainerId: created.ID,
		OutputURIs:  req.OutputURIs,
		LogURI:      req.LogURI,
	}
	return l.refreshHandle(ctx, handle)
}

func (l *Launcher) Refresh(ctx context.Context, c launcher.LaunchedContainer) (launcher.LaunchedContainer, error) {
	handle, err := dockerHandle(c)
	if err != nil {
		return nil, err
	}
	return l.refreshHandle(ctx, handle)
}

func (l *Launcher) refreshHandle(ctx context.Context, handle *LaunchedDockerContainer) (*LaunchedDockerContainer, error) {
	inspected, err := l.client.ContainerInspect(ctx, handle.ContainerId)
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to inspect container %s: %v", handle.ContainerId, err)
	}
	refreshed := *handle
	if inspected.State != nil {
		refreshed.State = inspected.State.Status
		refreshed.StateExitCode = int64(inspected.State.ExitCode)
		refreshed.StateStartedAt = parseDockerTime(inspected.State.StartedAt)
		refreshed.StateFinishedAt = parseDockerTime(inspected.State.FinishedAt)
	}
	return &refreshed, nil
}

func (l *Launcher) GetLog(ctx context.Context, c launcher.LaunchedContainer) (string, error) {
	stream, err := l.StreamLog(ctx, c)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	log, err := io.ReadAll(stream)
	if err != nil {
		return "", errors.NewLauncherErrorf("failed to read container log: %v", err)
	}
	return string(log), nil
}

func (l *Launcher) StreamLog(ctx context.Context, c launcher.LaunchedContainer) (io.ReadCloser, error) {
	handle, err := dockerHandle(c)
	if err != nil {
		return nil, err
	}
	muxedStream, err := l.client.ContainerLogs(ctx, handle.ContainerId, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	})
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to get container log: %v", err)
	}
	// Docker multiplexes stdout and stderr into one stream; demux into plain
	// text before handing it to the caller.
	pipeReader, pipeWriter := io.Pipe()
	go func() {
		defer muxedStream.Close()
		_, err := stdcopy.StdCopy(pipeWriter, pipeWriter, muxedStream)
		pipeWriter.CloseWithError(err)
	}()
	return pipeReader, nil
}

func (l *Launcher) Terminate(ctx context.Context, c launcher.LaunchedContainer) error {
	handle, err := dockerHandle(c)
	if err != nil {
		return err
	}
	if err := l.client.ContainerStop(ctx, handle.ContainerId, container.StopOptions{}); err != nil {
		return errors.NewLauncherErrorf("failed to stop container %s: %v", handle.ContainerId, err)
	}
	return nil
}

func (l *Launcher) DeserializePayload(payload []byte) (launcher.LaunchedContainer, error) {
	var handle LaunchedDockerContainer
	if err := json.Unmarshal(payload, &handle); err != nil {
		return nil, errors.NewLauncherErrorf("failed to parse docker container handle: %v", err)
	}
	return &handle, nil
}

func dockerHandle(c launcher.LaunchedContainer) (*LaunchedDockerContainer, error) {
	handle, ok := c.(*LaunchedDockerContainer)
	if !ok {
		return nil, errors.NewLauncherErrorf("container handle has kind %q, expected %q", c.Kind(), Kind)
	}
	return handle, nil
}

// LaunchedDockerContainer tracks one task container with the last inspected
// daemon state.
type LaunchedDockerContainer struct {
	ContainerId     string            `json:"container_id"`
	OutputURIs      map[string]string `json:"output_uris"`
	LogURI          string            `json:"log_uri"`
	State           string            `json:"state,omitempty"`
	StateExitCode   int64             `json:"state_exit_code,omitempty"`
	StateStartedAt  *time.Time        `json:"state_started_at,omitempty"`
	StateFinishedAt *time.Time        `json:"state_finished_at,omitempty"`
}

var _ launcher.LaunchedContainer = &LaunchedDockerContainer{}

func (c *LaunchedDockerContainer) Kind() string {
	return Kind
}

func (c *LaunchedDockerContainer) Status() launcher.ContainerStatus {
	switch c.State {
	case "", "created":
		return launcher.ContainerPending
	case "running", "paused", "restarting", "removing":
		return launcher.ContainerRunning
	case "exited", "dead":
		if c.StateExitCode == 0 {
			return launcher.ContainerSucceeded
		}
		return launcher.ContainerFailed
	default:
		return launcher.ContainerError
	}
}

func (c *LaunchedDockerContainer) ExitCode() *int64 {
	if c.StateFinishedAt == nil {
		return nil
	}
	exitCode := c.StateExitCode
	return &exitCode
}

func (c *LaunchedDockerContainer) StartedAt() *time.Time {
	return c.StateStartedAt
}

func (c *LaunchedDockerContainer) EndedAt() *time.Time {
	return c.StateFinishedAt
}

func (c *LaunchedDockerContainer) SerializePayload() ([]byte, error) {
	return json.Marshal(c)
}

func parseDockerTime(value string) *time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil || parsed.IsZero() || parsed.Unix() <= 0 {
		return nil
	}
	return &parsed
}

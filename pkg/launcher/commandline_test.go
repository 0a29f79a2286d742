/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package launcher

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

func pathResolver() *PlaceholderResolver {
	return &PlaceholderResolver{
		GetInputValue: func(inputName string) (string, error) { return "value:" + inputName, nil },
		GetInputPath:  func(inputName string) (string, error) { return ContainerInputPath(inputName), nil },
		GetOutputPath: func(outputName string) (string, error) { return ContainerOutputPath(outputName), nil },
	}
}

func trainerComponent() *v1.ComponentSpec {
	return &v1.ComponentSpec{
		Name: "Trainer",
		Inputs: []v1.InputSpec{
			{Name: "dataset"},
			{Name: "epochs", Optional: true},
		},
		Outputs: []v1.OutputSpec{{Name: "model"}},
		Implementation: &v1.Implementation{Container: &v1.ContainerSpec{
			Image: "trainer:latest",
			Command: []v1.CommandLineArg{
				v1.NewConstantArg("train"),
				v1.NewConstantArg("--dataset"),
				v1.NewInputPathArg("dataset"),
				v1.NewConstantArg("--epochs"),
				v1.NewInputValueArg("epochs"),
				v1.NewConstantArg("--model"),
				v1.NewOutputPathArg("model"),
			},
		}},
	}
}

func TestResolveCommandLineBasic(t *testing.T) {
	resolved, err := ResolveCommandLine(trainerComponent(),
		map[string]bool{"dataset": true, "epochs": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"train",
		"--dataset", "/tmp/inputs/dataset/data",
		"--epochs", "value:epochs",
		"--model", "/tmp/outputs/model/data",
	}, resolved.Command)
}

func TestResolveCommandLineDropsAbsentOptionalInput(t *testing.T) {
	// The flag constant stays; only the placeholder word is dropped.
	resolved, err := ResolveCommandLine(trainerComponent(),
		map[string]bool{"dataset": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"train",
		"--dataset", "/tmp/inputs/dataset/data",
		"--epochs",
		"--model", "/tmp/outputs/model/data",
	}, resolved.Command)
}

func TestResolveCommandLineRequiredInputMissing(t *testing.T) {
	_, err := ResolveCommandLine(trainerComponent(), map[string]bool{}, pathResolver())
	require.Error(t, err)
	assert.True(t, errors.IsLauncher(err))
	assert.Contains(t, err.Error(), `required input "dataset"`)
}

func TestResolveCommandLineUnknownPlaceholders(t *testing.T) {
	component := trainerComponent()
	component.Implementation.Container.Command = []v1.CommandLineArg{v1.NewInputPathArg("ghost")}
	_, err := ResolveCommandLine(component, map[string]bool{}, pathResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown input "ghost"`)

	component = trainerComponent()
	component.Implementation.Container.Command = []v1.CommandLineArg{v1.NewOutputPathArg("ghost")}
	_, err = ResolveCommandLine(component, map[string]bool{"dataset": true}, pathResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output "ghost"`)
}

func TestResolveCommandLineConcat(t *testing.T) {
	component := trainerComponent()
	component.Implementation.Container.Command = []v1.CommandLineArg{
		{Concat: []v1.CommandLineArg{
			v1.NewConstantArg("--dataset="),
			v1.NewInputPathArg("dataset"),
		}},
	}
	resolved, err := ResolveCommandLine(component, map[string]bool{"dataset": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"--dataset=/tmp/inputs/dataset/data"}, resolved.Command)
}

func TestResolveCommandLineIfIsPresent(t *testing.T) {
	epochs := "epochs"
	component := trainerComponent()
	component.Implementation.Container.Command = []v1.CommandLineArg{
		v1.NewConstantArg("train"),
		{If: &v1.IfPlaceholder{
			Cond: v1.IfCondition{IsPresent: &epochs},
			Then: []v1.CommandLineArg{v1.NewConstantArg("--epochs"), v1.NewInputValueArg("epochs")},
			Else: []v1.CommandLineArg{v1.NewConstantArg("--default-epochs")},
		}},
	}

	resolved, err := ResolveCommandLine(component,
		map[string]bool{"dataset": true, "epochs": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"train", "--epochs", "value:epochs"}, resolved.Command)

	resolved, err = ResolveCommandLine(component,
		map[string]bool{"dataset": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"train", "--default-epochs"}, resolved.Command)
}

func TestResolveCommandLineEnv(t *testing.T) {
	component := trainerComponent()
	component.Implementation.Container.Env = map[string]v1.CommandLineArg{
		"MODE":   v1.NewConstantArg("fast"),
		"EPOCHS": v1.NewInputValueArg("epochs"),
	}
	resolved, err := ResolveCommandLine(component,
		map[string]bool{"dataset": true, "epochs": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MODE": "fast", "EPOCHS": "value:epochs"}, resolved.Env)

	// Env entries referencing absent optional inputs disappear.
	resolved, err = ResolveCommandLine(component, map[string]bool{"dataset": true}, pathResolver())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MODE": "fast"}, resolved.Env)
}

// stubProvider records uploads and serves canned downloads.
type stubProvider struct {
	mu        sync.Mutex
	blobs     map[string]string
	downloads []string
}

func newStubProvider() *stubProvider {
	return &stubProvider{blobs: map[string]string{}}
}

func (p *stubProvider) DownloadBytes(ctx context.Context, uri string) ([]byte, error) {
	text, err := p.DownloadText(ctx, uri)
	return []byte(text), err
}

func (p *stubProvider) DownloadText(ctx context.Context, uri string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloads = append(p.downloads, uri)
	text, ok := p.blobs[uri]
	if !ok {
		return "", errors.NewStorageErrorf("blob %q does not exist", uri)
	}
	return text, nil
}

func (p *stubProvider) UploadBytes(ctx context.Context, uri string, data []byte) error {
	return p.UploadText(ctx, uri, string(data))
}

func (p *stubProvider) UploadText(ctx context.Context, uri string, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs[uri] = text
	return nil
}

func (p *stubProvider) GetInfo(ctx context.Context, uri string) (*storage.ArtifactInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.blobs[uri]
	if !ok {
		return nil, errors.NewStorageErrorf("blob %q does not exist", uri)
	}
	return &storage.ArtifactInfo{TotalSize: int64(len(text))}, nil
}

var _ storage.Provider = &stubProvider{}

func TestInputValueGetter(t *testing.T) {
	ctx := context.Background()
	provider := newStubProvider()
	require.NoError(t, provider.UploadText(ctx, "/data/blob", "downloaded"))

	inline := "inline"
	uri := "/data/blob"
	inputArguments := map[string]*InputArgument{
		"inline":   {TotalSize: 6, Value: &inline},
		"remote":   {TotalSize: 10, Uri: &uri},
		"huge":     {TotalSize: MaxInputValueSize + 1, Uri: &uri},
		"dir":      {IsDir: true, Uri: &uri},
		"dataless": {},
	}
	get := InputValueGetter(ctx, provider, inputArguments)

	value, err := get("inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", value)
	assert.Empty(t, provider.downloads)

	value, err = get("remote")
	require.NoError(t, err)
	assert.Equal(t, "downloaded", value)
	assert.Equal(t, []string{"/data/blob"}, provider.downloads)
	// The download is recorded so the caller can persist it.
	require.NotNil(t, inputArguments["remote"].Value)
	assert.Equal(t, "downloaded", *inputArguments["remote"].Value)

	_, err = get("huge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too big to consume as value")

	_, err = get("dir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory input")

	_, err = get("dataless")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither value nor uri")

	_, err = get("unknown")
	require.Error(t, err)
}

func TestStageInputURI(t *testing.T) {
	ctx := context.Background()
	provider := newStubProvider()

	existing := "/data/existing"
	uri, err := StageInputURI(ctx, provider, "ready", &InputArgument{Uri: &existing})
	require.NoError(t, err)
	assert.Equal(t, existing, uri)
	assert.Empty(t, provider.blobs)

	value := strings.Repeat("x", 10)
	inputArgument := &InputArgument{Value: &value, StagingUri: "/data/staged"}
	uri, err = StageInputURI(ctx, provider, "inline", inputArgument)
	require.NoError(t, err)
	assert.Equal(t, "/data/staged", uri)
	assert.Equal(t, value, provider.blobs["/data/staged"])
	// The upload is recorded so the caller can persist it.
	require.NotNil(t, inputArgument.Uri)
	assert.Equal(t, "/data/staged", *inputArgument.Uri)

	_, err = StageInputURI(ctx, provider, "empty", &InputArgument{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither value nor uri")
}

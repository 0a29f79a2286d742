/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package launcher

import (
	"context"
	"path"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

const (
	containerInputsRoot  = "/tmp/inputs"
	containerOutputsRoot = "/tmp/outputs"
	containerFileName    = "data"
)

// ContainerInputPath returns the in-container path of an input artifact.
func ContainerInputPath(inputName string) string {
	return path.Join(containerInputsRoot, storage.SanitizeName(inputName), containerFileName)
}

// ContainerOutputPath returns the in-container path of an output artifact.
func ContainerOutputPath(outputName string) string {
	return path.Join(containerOutputsRoot, storage.SanitizeName(outputName), containerFileName)
}

// ResolvedCommandLine is the fully materialized container command.
type ResolvedCommandLine struct {
	Command []string
	Env     map[string]string
}

// PlaceholderResolver supplies the values behind command-line placeholders.
// GetInputPath and GetOutputPath typically register a mount or a download as
// a side effect.
type PlaceholderResolver struct {
	GetInputValue func(inputName string) (string, error)
	GetInputPath  func(inputName string) (string, error)
	GetOutputPath func(outputName string) (string, error)
}

// ResolveCommandLine expands the component's command, args and env into plain
// strings. Arguments referencing absent optional inputs are dropped; an
// `if isPresent` placeholder selects its branch by input presence.
func ResolveCommandLine(
	componentSpec *v1.ComponentSpec,
	providedInputs map[string]bool,
	resolver *PlaceholderResolver,
) (*ResolvedCommandLine, error) {
	if componentSpec.Implementation == nil || componentSpec.Implementation.Container == nil {
		return nil, errors.NewLauncherError("component has no container implementation")
	}
	containerSpec := componentSpec.Implementation.Container
	command, err := resolveArgList(append(append([]v1.CommandLineArg{}, containerSpec.Command...), containerSpec.Args...), componentSpec, providedInputs, resolver)
	if err != nil {
		return nil, err
	}
	env := map[string]string{}
	for name, arg := range containerSpec.Env {
		values, err := resolveArg(arg, componentSpec, providedInputs, resolver)
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			env[name] = values[0]
		} else if len(values) > 1 {
			return nil, errors.NewLauncherErrorf("environment variable %q resolves to multiple values", name)
		}
	}
	return &ResolvedCommandLine{Command: command, Env: env}, nil
}

func resolveArgList(
	args []v1.CommandLineArg,
	componentSpec *v1.ComponentSpec,
	providedInputs map[string]bool,
	resolver *PlaceholderResolver,
) ([]string, error) {
	var result []string
	for _, arg := range args {
		values, err := resolveArg(arg, componentSpec, providedInputs, resolver)
		if err != nil {
			return nil, err
		}
		result = append(result, values...)
	}
	return result, nil
}

// resolveArg returns zero, one or several command-line words for one
// argument. Zero words means the argument references an absent optional
// input and is skipped.
func resolveArg(
	arg v1.CommandLineArg,
	componentSpec *v1.ComponentSpec,
	providedInputs map[string]bool,
	resolver *PlaceholderResolver,
) ([]string, error) {
	switch {
	case arg.Constant != nil:
		return []string{*arg.Constant}, nil
	case arg.InputValue != nil:
		return resolveInputPlaceholder(*arg.InputValue, componentSpec, providedInputs, resolver.GetInputValue)
	case arg.InputPath != nil:
		return resolveInputPlaceholder(*arg.InputPath, componentSpec, providedInputs, resolver.GetInputPath)
	case arg.OutputPath != nil:
		if componentSpec.OutputByName(*arg.OutputPath) == nil {
			return nil, errors.NewLauncherErrorf("command line references unknown output %q", *arg.OutputPath)
		}
		value, err := resolver.GetOutputPath(*arg.OutputPath)
		if err != nil {
			return nil, err
		}
		return []string{value}, nil
	case arg.Concat != nil:
		parts, err := resolveArgList(arg.Concat, componentSpec, providedInputs, resolver)
		if err != nil {
			return nil, err
		}
		joined := ""
		for _, part := range parts {
			joined += part
		}
		return []string{joined}, nil
	case arg.If != nil:
		condition, err := evaluateCondition(arg.If.Cond, componentSpec, providedInputs)
		if err != nil {
			return nil, err
		}
		if condition {
			return resolveArgList(arg.If.Then, componentSpec, providedInputs, resolver)
		}
		return resolveArgList(arg.If.Else, componentSpec, providedInputs, resolver)
	}
	return nil, errors.NewLauncherError("command line argument has no value")
}

func resolveInputPlaceholder(
	inputName string,
	componentSpec *v1.ComponentSpec,
	providedInputs map[string]bool,
	get func(inputName string) (string, error),
) ([]string, error) {
	inputSpec := componentSpec.InputByName(inputName)
	if inputSpec == nil {
		return nil, errors.NewLauncherErrorf("command line references unknown input %q", inputName)
	}
	if !providedInputs[inputName] {
		if inputSpec.Optional || inputSpec.Default != nil {
			return nil, nil
		}
		return nil, errors.NewLauncherErrorf("required input %q has no argument", inputName)
	}
	value, err := get(inputName)
	if err != nil {
		return nil, err
	}
	return []string{value}, nil
}

func evaluateCondition(cond v1.IfCondition, componentSpec *v1.ComponentSpec, providedInputs map[string]bool) (bool, error) {
	switch {
	case cond.IsPresent != nil:
		if componentSpec.InputByName(*cond.IsPresent) == nil {
			return false, errors.NewLauncherErrorf("isPresent references unknown input %q", *cond.IsPresent)
		}
		return providedInputs[*cond.IsPresent], nil
	case cond.Constant != nil:
		return *cond.Constant, nil
	}
	return false, errors.NewLauncherError("if condition has no value")
}

// InputValueGetter builds the GetInputValue callback shared by launchers: it
// returns the inline value, downloading it from the artifact URI when needed
// and recording the download back onto the input argument.
func InputValueGetter(ctx context.Context, provider storage.Provider, inputArguments map[string]*InputArgument) func(string) (string, error) {
	return func(inputName string) (string, error) {
		inputArgument, ok := inputArguments[inputName]
		if !ok {
			return "", errors.NewLauncherErrorf("input %q has no argument", inputName)
		}
		if inputArgument.IsDir {
			return "", errors.NewLauncherErrorf("cannot consume directory input %q as value", inputName)
		}
		if inputArgument.TotalSize > MaxInputValueSize {
			return "", errors.NewLauncherErrorf(
				"input %q is too big to consume as value (%d bytes); consume it as a file instead",
				inputName, inputArgument.TotalSize)
		}
		if inputArgument.Value != nil {
			return *inputArgument.Value, nil
		}
		if inputArgument.Uri == nil {
			return "", errors.NewLauncherErrorf("input %q has neither value nor uri", inputName)
		}
		value, err := provider.DownloadText(ctx, *inputArgument.Uri)
		if err != nil {
			return "", err
		}
		inputArgument.Value = &value
		return value, nil
	}
}

// StageInputURI returns the artifact URI of an input, uploading the inline
// value to the staging URI first when the input has no URI yet. The upload is
// recorded back onto the input argument.
func StageInputURI(ctx context.Context, provider storage.Provider, inputName string, inputArgument *InputArgument) (string, error) {
	if inputArgument.Uri != nil {
		return *inputArgument.Uri, nil
	}
	if inputArgument.Value == nil {
		return "", errors.NewLauncherErrorf("input %q has neither value nor uri", inputName)
	}
	if inputArgument.StagingUri == "" {
		return "", errors.NewLauncherErrorf("input %q has no staging uri", inputName)
	}
	if err := provider.UploadText(ctx, inputArgument.StagingUri, *inputArgument.Value); err != nil {
		return "", err
	}
	uri := inputArgument.StagingUri
	inputArgument.Uri = &uri
	return uri, nil
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package v1

import (
	"encoding/json"
	"fmt"
)

// CommandLineArg is one element of a container command line. It is either a
// constant string or a placeholder resolved at launch time. Placeholders are
// encoded as singleton objects keyed by the placeholder name.
type CommandLineArg struct {
	Constant   *string
	InputValue *string
	InputPath  *string
	OutputPath *string
	Concat     []CommandLineArg
	If         *IfPlaceholder
}

// IfPlaceholder selects between two argument lists based on a condition.
type IfPlaceholder struct {
	Cond IfCondition      `json:"cond"`
	Then []CommandLineArg `json:"then,omitempty"`
	Else []CommandLineArg `json:"else,omitempty"`
}

// IfCondition is either an input presence check or a boolean constant.
type IfCondition struct {
	IsPresent *string
	Constant  *bool
}

func NewConstantArg(value string) CommandLineArg {
	return CommandLineArg{Constant: &value}
}

func NewInputValueArg(inputName string) CommandLineArg {
	return CommandLineArg{InputValue: &inputName}
}

func NewInputPathArg(inputName string) CommandLineArg {
	return CommandLineArg{InputPath: &inputName}
}

func NewOutputPathArg(outputName string) CommandLineArg {
	return CommandLineArg{OutputPath: &outputName}
}

func (a CommandLineArg) MarshalJSON() ([]byte, error) {
	switch {
	case a.Constant != nil:
		return json.Marshal(*a.Constant)
	case a.InputValue != nil:
		return json.Marshal(map[string]string{"inputValue": *a.InputValue})
	case a.InputPath != nil:
		return json.Marshal(map[string]string{"inputPath": *a.InputPath})
	case a.OutputPath != nil:
		return json.Marshal(map[string]string{"outputPath": *a.OutputPath})
	case a.Concat != nil:
		return json.Marshal(map[string][]CommandLineArg{"concat": a.Concat})
	case a.If != nil:
		return json.Marshal(map[string]*IfPlaceholder{"if": a.If})
	}
	return nil, fmt.Errorf("command line argument has no value")
}

func (a *CommandLineArg) UnmarshalJSON(data []byte) error {
	*a = CommandLineArg{}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		a.Constant = &value
		return nil
	}
	var variants struct {
		InputValue *string          `json:"inputValue"`
		InputPath  *string          `json:"inputPath"`
		OutputPath *string          `json:"outputPath"`
		Concat     []CommandLineArg `json:"concat"`
		If         *IfPlaceholder   `json:"if"`
	}
	if err := json.Unmarshal(data, &variants); err != nil {
		return err
	}
	switch {
	case variants.InputValue != nil:
		a.InputValue = variants.InputValue
	case variants.InputPath != nil:
		a.InputPath = variants.InputPath
	case variants.OutputPath != nil:
		a.OutputPath = variants.OutputPath
	case variants.Concat != nil:
		a.Concat = variants.Concat
	case variants.If != nil:
		a.If = variants.If
	default:
		return fmt.Errorf("unknown command line placeholder: %s", string(data))
	}
	return nil
}

func (c IfCondition) MarshalJSON() ([]byte, error) {
	switch {
	case c.IsPresent != nil:
		return json.Marshal(map[string]string{"isPresent": *c.IsPresent})
	case c.Constant != nil:
		return json.Marshal(*c.Constant)
	}
	return nil, fmt.Errorf("if condition has no value")
}

func (c *IfCondition) UnmarshalJSON(data []byte) error {
	*c = IfCondition{}
	if len(data) > 0 && data[0] == '{' {
		var variant struct {
			IsPresent *string `json:"isPresent"`
		}
		if err := json.Unmarshal(data, &variant); err != nil {
			return err
		}
		if variant.IsPresent == nil {
			return fmt.Errorf("unknown if condition: %s", string(data))
		}
		c.IsPresent = variant.IsPresent
		return nil
	}
	var value bool
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("if condition must be a presence check or a boolean: %w", err)
	}
	c.Constant = &value
	return nil
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	sanitizeInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	sanitizeDashRuns     = regexp.MustCompile(`-+`)
)

// SanitizeName converts an input or output name into a URI path segment:
// lowercase, invalid characters replaced by dashes, dash runs collapsed,
// leading and trailing dashes trimmed.
func SanitizeName(name string) string {
	result := strings.ToLower(name)
	result = sanitizeInvalidChars.ReplaceAllString(result, "-")
	result = sanitizeDashRuns.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// NewExecutionId generates the id scoping one container execution's URIs:
// 12 hex digits of milliseconds since epoch followed by 8 random hex digits.
func NewExecutionId() string {
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%012x%s", time.Now().UnixMilli(), hex.EncodeToString(randomBytes))
}

// URIFactory derives the artifact and log URIs of one container execution.
type URIFactory struct {
	DataRoot    string
	LogsRoot    string
	ExecutionId string
}

func NewURIFactory(dataRoot, logsRoot string) *URIFactory {
	return &URIFactory{
		DataRoot:    strings.TrimRight(dataRoot, "/"),
		LogsRoot:    strings.TrimRight(logsRoot, "/"),
		ExecutionId: NewExecutionId(),
	}
}

func (f *URIFactory) InputURI(inputName string) string {
	return fmt.Sprintf("%s/by_execution/%s/inputs/%s/data", f.DataRoot, f.ExecutionId, SanitizeName(inputName))
}

func (f *URIFactory) OutputURI(outputName string) string {
	return fmt.Sprintf("%s/by_execution/%s/outputs/%s/data", f.DataRoot, f.ExecutionId, SanitizeName(outputName))
}

func (f *URIFactory) LogURI() string {
	return fmt.Sprintf("%s/by_execution/%s/log.txt", f.LogsRoot, f.ExecutionId)
}

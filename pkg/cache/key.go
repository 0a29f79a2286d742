/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package cache computes the deterministic fingerprint of a container
// invocation. Two executions with equal keys are interchangeable and may
// share their outputs.
package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	v1 "github.com/Cloud-Pipelines/pipelines-backend/pkg/apis/pipelines/v1"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// ComputeKey fingerprints the container spec plus the content hashes of the
// connected inputs. The encoding is canonical JSON: lexicographically sorted
// keys, tightest separators, UTF-8; the key is "md5=<lowercase hex>".
func ComputeKey(containerSpec *v1.ContainerSpec, inputHashes map[string]string) (string, error) {
	if inputHashes == nil {
		inputHashes = map[string]string{}
	}
	payload := map[string]interface{}{
		"container_spec": nil,
		"input_hashes":   inputHashes,
	}
	canonicalSpec, err := canonicalize(containerSpec)
	if err != nil {
		return "", errors.NewOrchestratorErrorf("failed to canonicalize container spec: %v", err)
	}
	payload["container_spec"] = canonicalSpec
	encoded, err := encodeCanonical(payload)
	if err != nil {
		return "", errors.NewOrchestratorErrorf("failed to encode cache key input: %v", err)
	}
	digest := md5.Sum(encoded)
	return "md5=" + hex.EncodeToString(digest[:]), nil
}

// canonicalize round-trips a value through generic JSON so that re-encoding
// sorts every object's keys.
func canonicalize(value interface{}) (interface{}, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func encodeCanonical(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

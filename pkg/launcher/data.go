/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package launcher

import (
	"encoding/json"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// dataEnvelope is the persisted form of a launched container handle: the
// launcher kind plus a kind-specific payload.
type dataEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Serialize wraps a handle into the tagged envelope stored on the container
// execution row.
func Serialize(container LaunchedContainer) ([]byte, error) {
	payload, err := container.SerializePayload()
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to serialize %s container handle: %v", container.Kind(), err)
	}
	data, err := json.Marshal(dataEnvelope{Kind: container.Kind(), Payload: payload})
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to serialize container handle envelope: %v", err)
	}
	return data, nil
}

func parseEnvelope(data []byte) (*dataEnvelope, error) {
	var envelope dataEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.NewLauncherErrorf("failed to parse container handle envelope: %v", err)
	}
	if envelope.Kind == "" {
		return nil, errors.NewLauncherError("container handle envelope has no kind")
	}
	return &envelope, nil
}

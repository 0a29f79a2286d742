/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

type ReadOnlyResponse struct {
	ReadOnly bool `json:"read_only"`
}

func (h *Handler) GetReadOnly(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		return &ReadOnlyResponse{ReadOnly: h.readOnly.Enabled()}, nil
	})
}

func (h *Handler) SetReadOnly(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		var request ReadOnlyResponse
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, errors.NewValidationErrorf("Invalid request body: %v", err)
		}
		h.readOnly.Set(request.ReadOnly)
		klog.Infof("Read-only mode set to %t by %q", request.ReadOnly, UserName(c))
		return &ReadOnlyResponse{ReadOnly: h.readOnly.Enabled()}, nil
	})
}

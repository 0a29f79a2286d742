/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) GetArtifact(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		artifactId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		return h.queries.GetArtifact(c.Request.Context(), artifactId)
	})
}

type SignedURLResponse struct {
	SignedUrl string `json:"signed_url"`
}

func (h *Handler) GetArtifactSignedURL(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		artifactId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		signedURL, err := h.queries.GetArtifactSignedURL(c.Request.Context(), artifactId)
		if err != nil {
			return nil, err
		}
		return &SignedURLResponse{SignedUrl: signedURL}, nil
	})
}

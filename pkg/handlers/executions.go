/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetExecutionInfo(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		executionId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		return h.queries.GetExecutionInfo(c.Request.Context(), executionId)
	})
}

func (h *Handler) GetGraphExecutionState(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		executionId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		return h.queries.GetGraphExecutionState(c.Request.Context(), executionId)
	})
}

func (h *Handler) GetContainerState(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) {
		executionId, err := pathId(c, "id")
		if err != nil {
			return nil, err
		}
		return h.queries.GetContainerState(c.Request.Context(), executionId)
	})
}

func (h *Handler) GetContainerLog(c *gin.Context) {
	executionId, err := pathId(c, "id")
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	logText, err := h.queries.GetContainerLog(c.Request.Context(), executionId)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(logText))
}

// StreamContainerLog streams the log as it is produced. The stream ends when
// the container finishes or the client disconnects.
func (h *Handler) StreamContainerLog(c *gin.Context) {
	executionId, err := pathId(c, "id")
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	stream, err := h.queries.StreamContainerLog(c.Request.Context(), executionId)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	defer stream.Close()
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	buf := make([]byte, 32*1024)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			if err != io.EOF {
				_ = c.Error(err)
			}
			return
		}
	}
}

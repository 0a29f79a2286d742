/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// InitRouters builds the gin engine serving the whole API surface.
func InitRouters(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(Logger(), gin.Recovery(), Identity())
	engine.NoRoute(func(c *gin.Context) {
		AbortWithApiError(c, errors.NewItemNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	engine.GET("/healthz", h.Healthz)
	engine.GET("/readyz", h.Readyz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api", ReadOnlyGuard(h.readOnly))
	{
		api.POST("pipeline_runs", h.CreatePipelineRun)
		api.GET("pipeline_runs", h.ListPipelineRuns)
		api.GET("pipeline_runs/:id", h.GetPipelineRun)
		api.POST("pipeline_runs/:id/terminate", h.TerminatePipelineRun)

		api.GET("executions/:id", h.GetExecutionInfo)
		api.GET("executions/:id/state", h.GetGraphExecutionState)
		api.GET("executions/:id/container_state", h.GetContainerState)
		api.GET("executions/:id/container_log", h.GetContainerLog)
		api.GET("executions/:id/stream_container_log", h.StreamContainerLog)

		api.GET("artifacts/:id", h.GetArtifact)
		api.GET("artifacts/:id/signed_url", h.GetArtifactSignedURL)
	}

	admin := engine.Group("/api/admin", RequireAdmin())
	{
		admin.GET("read_only", h.GetReadOnly)
		admin.PUT("read_only", h.SetReadOnly)
	}
	return engine
}

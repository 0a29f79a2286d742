/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers exposes the pipelines API over HTTP.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/database"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/pipelineruns"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/queryservice"
)

const jsonContentType = "application/json; charset=utf-8"

type handleFunc func(*gin.Context) (interface{}, error)

// handle executes the handler function and renders the response or the error
// envelope.
func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch responseType := response.(type) {
	case []byte:
		c.Data(code, jsonContentType, responseType)
	case string:
		c.Data(code, jsonContentType, []byte(responseType))
	default:
		c.JSON(code, responseType)
	}
}

type Handler struct {
	db       database.Interface
	runs     *pipelineruns.Service
	queries  *queryservice.Service
	readOnly *ReadOnlyState
}

func NewHandler(db database.Interface, runs *pipelineruns.Service, queries *queryservice.Service, readOnly *ReadOnlyState) *Handler {
	return &Handler{db: db, runs: runs, queries: queries, readOnly: readOnly}
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

// ApiError is the unified error response envelope: HTTP code, error code and
// error message.
type ApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (err *ApiError) Error() string {
	return err.ErrorMessage
}

// AbortWithApiError converts any error into the envelope and aborts the
// request with it.
func AbortWithApiError(c *gin.Context, err error) {
	_ = c.Error(err)
	statusErr := errors.FromError(err)
	c.AbortWithStatusJSON(int(statusErr.Status().Code), ApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	})
}

/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
)

const (
	RequestIdHeader = "X-Request-Id"

	contextKeyUser   = "pipelines/user"
	contextKeyGroups = "pipelines/groups"
)

// Logger stamps every request with an id and writes one access log line.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Header(RequestIdHeader, requestId)
		start := time.Now()
		c.Next()
		klog.Infof("%s %s %d %s requestId=%s user=%q",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), requestId, UserName(c))
	}
}

// Identity reads the user and group headers set by the authenticating proxy
// and stores them on the context. Requests without headers stay anonymous.
func Identity() gin.HandlerFunc {
	userHeader := config.GetUserHeaderName()
	groupsHeader := config.GetUserGroupsHeaderName()
	return func(c *gin.Context) {
		if user := c.GetHeader(userHeader); user != "" {
			c.Set(contextKeyUser, user)
		}
		if groups := c.GetHeader(groupsHeader); groups != "" {
			var parsed []string
			for _, group := range strings.Split(groups, ",") {
				if group = strings.TrimSpace(group); group != "" {
					parsed = append(parsed, group)
				}
			}
			c.Set(contextKeyGroups, parsed)
		}
		c.Next()
	}
}

// UserName returns the authenticated user, or "" for anonymous requests.
func UserName(c *gin.Context) string {
	return c.GetString(contextKeyUser)
}

// UserGroups returns the authenticated user's groups.
func UserGroups(c *gin.Context) []string {
	return c.GetStringSlice(contextKeyGroups)
}

// IsAdmin reports whether the user belongs to the configured admin group.
func IsAdmin(c *gin.Context) bool {
	adminGroup := config.GetUserAdminGroup()
	for _, group := range UserGroups(c) {
		if group == adminGroup {
			return true
		}
	}
	return false
}

// ReadOnlyGuard rejects mutating requests while the server is in read-only
// mode. Admins are exempt so they can turn the mode off again.
func ReadOnlyGuard(state *ReadOnlyState) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			c.Next()
			return
		}
		if state.Enabled() && !IsAdmin(c) {
			AbortWithApiError(c, errors.NewPermissionDenied("The server is in read-only mode."))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests from users outside the admin group.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			AbortWithApiError(c, errors.NewPermissionDenied("Administrator access required."))
			return
		}
		c.Next()
	}
}

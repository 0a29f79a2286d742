/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestIsValidation(t *testing.T) {
	err := NewValidationError("test")
	assert.Equal(t, IsValidation(err), true)
	err2 := fmt.Errorf("test")
	assert.Equal(t, IsValidation(err2), false)
	err3 := NewInternalError("test")
	assert.Equal(t, IsValidation(err3), false)
	err4 := apierrors.NewBadRequest("test")
	assert.Equal(t, IsValidation(err4), false)
}

func TestIsItemNotFound(t *testing.T) {
	assert.Equal(t, IsItemNotFound(NewItemNotFound(PipelineRunKind, "42")), true)
	assert.Equal(t, IsItemNotFound(NewItemNotFound(ExecutionKind, "7")), true)
	assert.Equal(t, IsItemNotFound(NewItemNotFound(ArtifactKind, "9")), true)
	assert.Equal(t, IsItemNotFound(NewItemNotFoundWithMessage("gone")), true)
	assert.Equal(t, IsItemNotFound(NewValidationError("test")), false)
	assert.Equal(t, IsItemNotFound(apierrors.NewNotFound(schema.GroupResource{}, "test")), false)
}

func TestNotFoundErrorCode(t *testing.T) {
	assert.Equal(t, NotFoundErrorCode(PipelineRunKind), PipelineRunNotFound)
	assert.Equal(t, NotFoundErrorCode(ExecutionKind), ExecutionNotFound)
	assert.Equal(t, NotFoundErrorCode(ContainerExecutionKind), ExecutionNotFound)
	assert.Equal(t, NotFoundErrorCode(ArtifactKind), ArtifactNotFound)
	assert.Equal(t, NotFoundErrorCode("Unknown"), ItemNotFound)
}

func TestHttpCodes(t *testing.T) {
	assert.Equal(t, int(NewValidationError("x").Status().Code), http.StatusBadRequest)
	assert.Equal(t, int(NewPermissionDenied("x").Status().Code), http.StatusForbidden)
	assert.Equal(t, int(NewItemNotFound(ArtifactKind, "1").Status().Code), http.StatusNotFound)
	assert.Equal(t, int(NewOrchestratorError("x").Status().Code), http.StatusInternalServerError)
	assert.Equal(t, int(NewLauncherError("x").Status().Code), http.StatusInternalServerError)
	assert.Equal(t, int(NewStorageError("x").Status().Code), http.StatusInternalServerError)
	assert.Equal(t, int(NewNotImplemented("x").Status().Code), http.StatusNotImplemented)
}

func TestIgnoreNotFound(t *testing.T) {
	assert.Nil(t, IgnoreNotFound(nil))
	assert.Nil(t, IgnoreNotFound(NewItemNotFound(ArtifactKind, "1")))
	assert.NotNil(t, IgnoreNotFound(NewValidationError("x")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, GetErrorCode(NewLauncherError("x")), LauncherError)
	assert.Equal(t, GetErrorCode(fmt.Errorf("plain")), "")
}

func TestFromError(t *testing.T) {
	orig := NewStorageError("boom")
	assert.Equal(t, FromError(orig), orig)
	wrapped := FromError(fmt.Errorf("plain"))
	assert.Equal(t, IsInternal(wrapped), true)
	assert.Nil(t, FromError(nil))
}

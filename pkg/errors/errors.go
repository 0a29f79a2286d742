/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const PipelinesPrefix = "Pipelines."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Pipeline run, execution and artifact errors
   02: Orchestration and launcher errors
   03: Storage and database errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError    = PipelinesPrefix + "00001"
	ValidationError  = PipelinesPrefix + "00002"
	PermissionDenied = PipelinesPrefix + "00003"
	ItemNotFound     = PipelinesPrefix + "00004"
	NotImplemented   = PipelinesPrefix + "00005"
)

// pipeline run: 01xxx
const (
	PipelineRunNotFound = PipelinesPrefix + "01001"
	ExecutionNotFound   = PipelinesPrefix + "01002"
	ArtifactNotFound    = PipelinesPrefix + "01003"
)

// orchestration: 02xxx
const (
	OrchestratorError = PipelinesPrefix + "02001"
	LauncherError     = PipelinesPrefix + "02002"
)

// storage: 03xxx
const (
	StorageError  = PipelinesPrefix + "03001"
	DatabaseError = PipelinesPrefix + "03002"
)

// resource kinds used by NewItemNotFound.
const (
	PipelineRunKind        = "PipelineRun"
	ExecutionKind          = "Execution"
	ArtifactKind           = "Artifact"
	ArtifactDataKind       = "ArtifactData"
	ContainerExecutionKind = "ContainerExecution"
)

// returns true if the specified error reason is a pipelines error.
func IsPipelines(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), PipelinesPrefix)
}

func IsValidation(err error) bool {
	return apierrors.ReasonForError(err) == ValidationError
}

func IsPermissionDenied(err error) bool {
	return apierrors.ReasonForError(err) == PermissionDenied
}

func IsInternal(err error) bool {
	return apierrors.ReasonForError(err) == InternalError
}

func IsItemNotFound(err error) bool {
	reason := apierrors.ReasonForError(err)
	if reason == ItemNotFound || reason == PipelineRunNotFound ||
		reason == ExecutionNotFound || reason == ArtifactNotFound {
		return true
	}
	return false
}

func IsOrchestrator(err error) bool {
	return apierrors.ReasonForError(err) == OrchestratorError
}

func IsLauncher(err error) bool {
	return apierrors.ReasonForError(err) == LauncherError
}

func IsStorage(err error) bool {
	return apierrors.ReasonForError(err) == StorageError
}

func IsDatabase(err error) bool {
	return apierrors.ReasonForError(err) == DatabaseError
}

func IgnoreNotFound(err error) error {
	if err == nil || IsItemNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsPipelines(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewValidationError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  ValidationError,
		Message: message,
	}}
}

func NewValidationErrorf(format string, args ...interface{}) *apierrors.StatusError {
	return NewValidationError(fmt.Sprintf(format, args...))
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewPermissionDenied(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusForbidden,
		Reason:  PermissionDenied,
		Message: message,
	}}
}

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case PipelineRunKind:
		return PipelineRunNotFound
	case ExecutionKind, ContainerExecutionKind:
		return ExecutionNotFound
	case ArtifactKind, ArtifactDataKind:
		return ArtifactNotFound
	default:
		return ItemNotFound
	}
}

func NewItemNotFound(kind, name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: NotFoundErrorCode(kind),
		Details: &metav1.StatusDetails{
			Kind: kind,
			Name: name,
		},
		Message: fmt.Sprintf("%s %s not found.", kind, name),
	}}
}

func NewItemNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  ItemNotFound,
		Message: message,
	}}
}

func NewNotImplemented(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotImplemented,
		Reason:  NotImplemented,
		Message: message,
	}}
}

func NewOrchestratorError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  OrchestratorError,
		Message: message,
	}}
}

func NewOrchestratorErrorf(format string, args ...interface{}) *apierrors.StatusError {
	return NewOrchestratorError(fmt.Sprintf(format, args...))
}

func NewLauncherError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  LauncherError,
		Message: message,
	}}
}

func NewLauncherErrorf(format string, args ...interface{}) *apierrors.StatusError {
	return NewLauncherError(fmt.Sprintf(format, args...))
}

func NewStorageError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  StorageError,
		Message: message,
	}}
}

func NewStorageErrorf(format string, args ...interface{}) *apierrors.StatusError {
	return NewStorageError(fmt.Sprintf(format, args...))
}

func NewDatabaseError(op string, err error) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  DatabaseError,
		Message: fmt.Sprintf("Database operation %s failed: %v", op, err),
	}}
}

// FromError normalizes an arbitrary error into a StatusError so the HTTP
// layer can always render the code/message envelope.
func FromError(err error) *apierrors.StatusError {
	if err == nil {
		return nil
	}
	if statusErr, ok := err.(*apierrors.StatusError); ok {
		return statusErr
	}
	return NewInternalError(err.Error())
}

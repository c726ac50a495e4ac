package errors

import (
	"fmt"
	"net/http"
)

// Canvas-specific error constructors. These map one-to-one to the engine's
// error taxonomy; codes are stable and safe to match with errors.Is.

// NewCanvasNotFoundError indicates the canvas record does not exist, is
// soft-deleted, or is not owned by the requesting user. Fatal to the calling
// operation and never retried.
func NewCanvasNotFoundError(canvasID string) *AppError {
	return NewNotFoundError("canvas").
		WithCode("CANVAS_NOT_FOUND").
		WithDetail("canvasId", canvasID)
}

// NewUserNotFoundError indicates the owning user record does not exist.
func NewUserNotFoundError(uid string) *AppError {
	return NewNotFoundError("user").
		WithCode("USER_NOT_FOUND").
		WithDetail("uid", uid)
}

// NewCanvasStateEmptyError indicates the state blob exists but is
// zero-length. Distinct from "state absent", which is not an error on read
// paths.
func NewCanvasStateEmptyError(storageKey string) *AppError {
	return NewInternalError("canvas state is empty").
		WithCode("CANVAS_STATE_EMPTY").
		WithDetail("storageKey", storageKey)
}

// NewCanvasStateCorruptError indicates the state blob could not be decoded.
// Callers treat it as "no usable state" and must not silently fabricate a
// fresh document on write paths.
func NewCanvasStateCorruptError(storageKey string, err error) *AppError {
	return NewInternalError("canvas state is corrupt").
		WithCode("CANVAS_STATE_CORRUPT").
		WithDetail("storageKey", storageKey).
		WithCause(err)
}

// NewStorageQuotaExceededError indicates the user lacks quota for the
// requested number of entity duplications. Raised before any write occurs.
func NewStorageQuotaExceededError(required, available int) *AppError {
	return &AppError{
		Type:       ErrorTypeQuota,
		Code:       "STORAGE_QUOTA_EXCEEDED",
		Message:    fmt.Sprintf("storage quota exceeded: need %d, have %d", required, available),
		HTTPStatus: http.StatusPaymentRequired,
	}
}

// NewTransientStoreError wraps an I/O failure from the blob or relational
// store. Retry policy belongs to the caller or the queue layer.
func NewTransientStoreError(operation string, err error) *AppError {
	return NewStorageError(operation, err)
}

// IsCanvasNotFound reports whether the error chain contains a canvas or
// user not-found condition. Background handlers swallow these, since the
// target may have been legitimately deleted after scheduling.
func IsCanvasNotFound(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	return appErr.Code == "CANVAS_NOT_FOUND" || appErr.Code == "USER_NOT_FOUND"
}

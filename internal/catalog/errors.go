package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable failure codes surfaced to transport adapters.
const (
	CodeStorageError    = "storage_error"
	CodeConflict        = "conflict"
	CodeNotFound        = "not_found"
	CodeInvalidArgument = "invalid_argument"
)

// Failure captures transport-neutral error details that adapters can map to
// HTTP or other protocols.
type Failure struct {
	Code       string
	Detail     string
	HTTPStatus int // optional hint for HTTP adapters
	Err        error
}

func (f Failure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Detail)
	}
	return f.Code
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f Failure) Unwrap() error {
	return f.Err
}

// FailureCode returns the stable code carried by err, or empty when err is
// not a catalog failure.
func FailureCode(err error) string {
	var failure Failure
	if errors.As(err, &failure) {
		return failure.Code
	}
	return ""
}

func storageFailure(op string, err error) error {
	return Failure{
		Code:       CodeStorageError,
		Detail:     fmt.Sprintf("%s: %v", op, err),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func conflictFailure(detail string, err error) error {
	return Failure{
		Code:       CodeConflict,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func notFoundFailure(detail string) error {
	return Failure{
		Code:       CodeNotFound,
		Detail:     detail,
		HTTPStatus: http.StatusNotFound,
	}
}

func invalidArgument(detail string) error {
	return Failure{
		Code:       CodeInvalidArgument,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Package apperr defines the error kinds shared by the store, the ledger
// engine and the HTTP layer. Callers wrap a kind with context and classify
// with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIntegrity        = errors.New("integrity error")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// NotFound wraps ErrNotFound with the missing entity and id.
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PermissionDenied wraps ErrPermissionDenied with the refused action.
func PermissionDenied(action string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, action)
}

// Integrity wraps a storage constraint failure.
func Integrity(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIntegrity, msg, err)
}

// Unauthenticated wraps ErrUnauthenticated.
func Unauthenticated(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}

// Code returns a short machine-readable code for err, used in API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrIntegrity):
		return "integrity_error"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	}
	return "internal_error"
}

// HTTPStatus maps err to the response status used by the HTTP layer.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrIntegrity):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

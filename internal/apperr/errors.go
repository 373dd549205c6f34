// Package apperr defines the error kinds shared by the attendance core,
// the repositories and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicateLog = errors.New("duplicate log")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrStoreFailure = errors.New("store failure")
)

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateLog), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code put in error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateLog):
		return "duplicate_log"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

// Known reports whether err already carries one of the kinds above.
func Known(err error) bool {
	for _, k := range []error{ErrInvalidInput, ErrDuplicateLog, ErrNotFound, ErrUnauthorized, ErrForbidden, ErrConflict, ErrStoreFailure} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

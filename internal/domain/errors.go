package domain

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error codes reported by the remote data service. The numeric ones are
// Postgres SQLSTATE values, the rest mirror HTTP statuses as strings.
const (
	CodeUniqueViolation  = "23505"
	CodePermissionDenied = "42501"
	CodeBadRequest       = "400"
	CodeUnauthorized     = "401"
	CodeNotFound         = "404"
	CodeServerError      = "500"
)

// APIError is a failure reported by the remote data service.
type APIError struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"status_text,omitempty"`
}

func (e *APIError) Error() string {
	switch {
	case e == nil:
		return "remote data service error"
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	case e.Message != "":
		return e.Message
	case e.Status != 0:
		return fmt.Sprintf("status %d %s", e.Status, e.StatusText)
	default:
		return "remote data service error"
	}
}

// ErrNotFound builds the error returned when a single-row query matches nothing.
func ErrNotFound(what string) *APIError {
	return &APIError{
		Code:       CodeNotFound,
		Message:    what + " not found",
		Status:     http.StatusNotFound,
		StatusText: http.StatusText(http.StatusNotFound),
	}
}

// ErrDuplicate builds a uniqueness violation for the given constraint.
func ErrDuplicate(constraint string) *APIError {
	return &APIError{
		Code:       CodeUniqueViolation,
		Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
		Status:     http.StatusConflict,
		StatusText: http.StatusText(http.StatusConflict),
	}
}

// ErrPermissionDenied builds the access-policy rejection for a table.
func ErrPermissionDenied(table string) *APIError {
	return &APIError{
		Code:       CodePermissionDenied,
		Message:    "permission denied for table " + table,
		Status:     http.StatusForbidden,
		StatusText: http.StatusText(http.StatusForbidden),
	}
}

// ErrUnauthorized builds an auth failure with the backend's message.
func ErrUnauthorized(message string) *APIError {
	return &APIError{
		Message:    message,
		Status:     http.StatusUnauthorized,
		StatusText: http.StatusText(http.StatusUnauthorized),
	}
}

// ValidationErrors maps a form field to the first rule it failed.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

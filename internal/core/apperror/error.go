// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All report errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInvalidRange   = "INVALID_RANGE"
	CodeRangeTooLarge  = "RANGE_TOO_LARGE"
	CodeUnknownReport  = "UNKNOWN_REPORT"
	CodeInvalidPolicy  = "INVALID_INCLUSION_POLICY"
	CodeInvalidColumns = "INVALID_COLUMNS"

	// Data consistency violations (422)
	CodeInvalidHierarchy = "INVALID_HIERARCHY"
	CodeDateOutOfRange   = "DATE_OUT_OF_RANGE"
	CodeUnknownNode      = "UNKNOWN_NODE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrInvalidHierarchy = &AppError{Code: CodeInvalidHierarchy}
	ErrInvalidRange     = &AppError{Code: CodeInvalidRange}
	ErrRangeTooLarge    = &AppError{Code: CodeRangeTooLarge}
	ErrDateOutOfRange   = &AppError{Code: CodeDateOutOfRange}
	ErrUnknownNode      = &AppError{Code: CodeUnknownNode}
	ErrNotFound         = &AppError{Code: CodeNotFound}
	ErrValidation       = &AppError{Code: CodeValidation}
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (node ids, dates, bucket counts)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewUnknownReport is returned when a report name is not in the catalog.
func NewUnknownReport(name string) *AppError {
	return &AppError{
		Code:       CodeUnknownReport,
		Message:    fmt.Sprintf("report %q is not registered", name),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"report": name},
	}
}

// NewInvalidHierarchy creates an error for malformed nested-set input (422).
// Fatal: the run is aborted before any aggregation.
func NewInvalidHierarchy(nodeID, reason string) *AppError {
	return &AppError{
		Code:       CodeInvalidHierarchy,
		Message:    fmt.Sprintf("invalid hierarchy at node %q: %s", nodeID, reason),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID, "reason": reason},
	}
}

// NewInvalidRange creates an error for an unusable date range (400).
func NewInvalidRange(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidRange,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewRangeTooLarge is returned when a calendar would need more buckets than allowed.
func NewRangeTooLarge(limit int) *AppError {
	return &AppError{
		Code:       CodeRangeTooLarge,
		Message:    fmt.Sprintf("date range needs more than %d periods", limit),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"limit": limit},
	}
}

// NewDateOutOfRange is returned when a record cannot be placed in any bucket.
func NewDateOutOfRange(nodeID, date string) *AppError {
	return &AppError{
		Code:       CodeDateOutOfRange,
		Message:    fmt.Sprintf("record of %q dated %s falls outside the report periods", nodeID, date),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID, "date": date},
	}
}

// NewUnknownNode is returned when a record references a node absent from the hierarchy.
func NewUnknownNode(nodeID string) *AppError {
	return &AppError{
		Code:       CodeUnknownNode,
		Message:    fmt.Sprintf("record references unknown node %q", nodeID),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID},
	}
}

// NewInvalidColumn is returned when a record's column key is not part of the column set.
func NewInvalidColumn(nodeID, column string) *AppError {
	return &AppError{
		Code:       CodeInvalidColumns,
		Message:    fmt.Sprintf("record of %q has unknown column %q", nodeID, column),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID, "column": column},
	}
}

// NewInvalidPolicy creates an error for a row inclusion expression that does not compile (400).
func NewInvalidPolicy(expr string, err error) *AppError {
	return &AppError{
		Code:       CodeInvalidPolicy,
		Message:    "row inclusion expression is invalid",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"expression": expr},
		Err:        err,
	}
}

// NewDatabase wraps a storage failure (500).
func NewDatabase(op string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound || appErr.Code == CodeUnknownReport
	}
	return false
}

package utils

import (
	"errors"
	"fmt"
	"net/http"

	"lakehouse-gateway/internal/delta"
	"lakehouse-gateway/internal/repository"
)

// Error codes with HTTP status mapping
const (
	// General errors
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"

	// Table errors
	ErrCodeTableNotFound    = "TABLE_NOT_FOUND"
	ErrCodeNotATable        = "NOT_A_TABLE"
	ErrCodeLocationOccupied = "LOCATION_OCCUPIED"
	ErrCodeSchemaMismatch   = "SCHEMA_MISMATCH"
	ErrCodeVersionNotFound  = "VERSION_NOT_FOUND"
	ErrCodeCommitConflict   = "COMMIT_CONFLICT"

	// Streaming errors
	ErrCodeStreamNotFound          = "STREAM_NOT_FOUND"
	ErrCodeStreamExists            = "STREAM_EXISTS"
	ErrCodeUnsupportedSourceChange = "UNSUPPORTED_SOURCE_CHANGE"

	// Catalog errors
	ErrCodeDatabaseNotFound   = "DATABASE_NOT_FOUND"
	ErrCodeDatabaseExists     = "DATABASE_EXISTS"
	ErrCodeDatabaseNotEmpty   = "DATABASE_NOT_EMPTY"
	ErrCodeDataSourceNotFound = "DATASOURCE_NOT_FOUND"
	ErrCodeDataSourceExists   = "DATASOURCE_EXISTS"

	// Query errors
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeQueryFailed       = "QUERY_FAILED"

	// Authentication errors
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeInvalidToken = "INVALID_TOKEN"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeInvalidRequest:     http.StatusBadRequest,
	ErrCodeValidationFailed:   http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,

	ErrCodeTableNotFound:    http.StatusNotFound,
	ErrCodeNotATable:        http.StatusConflict,
	ErrCodeLocationOccupied: http.StatusConflict,
	ErrCodeSchemaMismatch:   http.StatusUnprocessableEntity,
	ErrCodeVersionNotFound:  http.StatusNotFound,
	ErrCodeCommitConflict:   http.StatusConflict,

	ErrCodeStreamNotFound:          http.StatusNotFound,
	ErrCodeStreamExists:            http.StatusConflict,
	ErrCodeUnsupportedSourceChange: http.StatusConflict,

	ErrCodeDatabaseNotFound:   http.StatusNotFound,
	ErrCodeDatabaseExists:     http.StatusConflict,
	ErrCodeDatabaseNotEmpty:   http.StatusConflict,
	ErrCodeDataSourceNotFound: http.StatusNotFound,
	ErrCodeDataSourceExists:   http.StatusConflict,

	ErrCodeUnsupportedFormat: http.StatusBadRequest,
	ErrCodeQueryFailed:       http.StatusInternalServerError,

	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeInvalidToken: http.StatusUnauthorized,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error code
func (e *AppError) Status() int {
	if status, ok := HTTPStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}
	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

// getDefaultMessage returns a default message for error codes
func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeInvalidRequest:     "The request is invalid",
		ErrCodeValidationFailed:   "Validation failed",
		ErrCodeUnauthorized:       "Unauthorized access",
		ErrCodeForbidden:          "Access forbidden",
		ErrCodeNotFound:           "Resource not found",
		ErrCodeConflict:           "Resource conflict",
		ErrCodeInternalError:      "Internal server error",
		ErrCodeServiceUnavailable: "Service temporarily unavailable",
		ErrCodeRateLimitExceeded:  "Rate limit exceeded",

		ErrCodeTableNotFound:    "Table not found at location",
		ErrCodeNotATable:        "Location holds data but no transaction log",
		ErrCodeLocationOccupied: "Location already holds a table",
		ErrCodeSchemaMismatch:   "Input schema does not match table schema",
		ErrCodeVersionNotFound:  "Requested version does not exist",
		ErrCodeCommitConflict:   "Concurrent writers exhausted commit retries",

		ErrCodeStreamNotFound:          "Stream not found",
		ErrCodeStreamExists:            "Stream already running",
		ErrCodeUnsupportedSourceChange: "Source table changed in a way the stream cannot replay",

		ErrCodeDatabaseNotFound:   "Database not found",
		ErrCodeDatabaseExists:     "Database already exists",
		ErrCodeDatabaseNotEmpty:   "Database still holds tables",
		ErrCodeDataSourceNotFound: "External data source not found",
		ErrCodeDataSourceExists:   "External data source already exists",

		ErrCodeUnsupportedFormat: "Unsupported data format",
		ErrCodeQueryFailed:       "Query execution failed",

		ErrCodeTokenExpired: "Token expired",
		ErrCodeInvalidToken: "Invalid token",
	}
	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

// FromError maps engine and repository sentinel errors to AppErrors so
// controllers return consistent codes without inspecting every layer.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	code := ErrCodeInternalError
	switch {
	case errors.Is(err, delta.ErrTableNotFound):
		code = ErrCodeTableNotFound
	case errors.Is(err, delta.ErrNotATable):
		code = ErrCodeNotATable
	case errors.Is(err, delta.ErrTableAlreadyExists):
		code = ErrCodeLocationOccupied
	case errors.Is(err, delta.ErrSchemaMismatch):
		code = ErrCodeSchemaMismatch
	case errors.Is(err, delta.ErrVersionNotFound):
		code = ErrCodeVersionNotFound
	case errors.Is(err, delta.ErrCommitConflict):
		code = ErrCodeCommitConflict
	case errors.Is(err, delta.ErrUnsupportedSourceChange):
		code = ErrCodeUnsupportedSourceChange
	case errors.Is(err, repository.ErrDatabaseNotFound):
		code = ErrCodeDatabaseNotFound
	case errors.Is(err, repository.ErrDatabaseExists):
		code = ErrCodeDatabaseExists
	case errors.Is(err, repository.ErrDatabaseNotEmpty):
		code = ErrCodeDatabaseNotEmpty
	case errors.Is(err, repository.ErrEntryNotFound):
		code = ErrCodeTableNotFound
	case errors.Is(err, repository.ErrEntryExists):
		code = ErrCodeConflict
	case errors.Is(err, repository.ErrDataSourceNotFound):
		code = ErrCodeDataSourceNotFound
	case errors.Is(err, repository.ErrDataSourceExists):
		code = ErrCodeDataSourceExists
	}
	return NewErrorBuilder(code).WithDetails(err.Error()).WithCause(err).Build()
}

// Convenience constructors for common error types

func NewValidationError(details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).WithDetails(details).Build()
}

func NewInvalidRequestError(details string) *AppError {
	return NewErrorBuilder(ErrCodeInvalidRequest).WithDetails(details).Build()
}

func NewNotFoundError(resource string) *AppError {
	return NewErrorBuilder(ErrCodeNotFound).
		WithMessage(fmt.Sprintf("%s not found", resource)).
		Build()
}

package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Job error codes
const (
	ErrValidation  ErrorCode = "VALIDATION"
	ErrEmptyInput  ErrorCode = "EMPTY_INPUT"
	ErrToolFailure ErrorCode = "TOOL_FAILURE"
	ErrUnknownType ErrorCode = "UNKNOWN_TYPE"
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
)

// Transport error codes
const (
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrRateLimited  ErrorCode = "RATE_LIMITED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Tool names the external program for TOOL_FAILURE errors.
	Tool  string `json:"tool,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTool records the external program that failed.
func (e *Error) WithTool(tool string) *Error {
	e.Tool = tool
	return e
}

// ValidationError builds a VALIDATION error.
func ValidationError(message string) *Error {
	return NewError(ErrValidation, message)
}

// EmptyInputError builds an EMPTY_INPUT error.
func EmptyInputError(message string) *Error {
	return NewError(ErrEmptyInput, message)
}

// ToolFailureError builds a TOOL_FAILURE error for the named program.
func ToolFailureError(tool string, cause error) *Error {
	return NewError(ErrToolFailure, tool+" failure").WithTool(tool).WithCause(cause)
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// Message returns the user-facing message of err. Structured errors drop
// their cause so tool output never leaks into job results.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Package errors provides structured error types for pluginindex.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP service can
// report the failing stage without parsing messages. Causes are preserved for
// errors.Is/As and for the trace streamed back by the update endpoint.
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeRegistrySearch, cause, "page %d", page)
//	if errors.Is(err, errors.ErrCodeRegistrySearch) {
//	    // abort the run
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes, grouped by pipeline stage.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Upstream errors
	ErrCodeNetwork        Code = "NETWORK_ERROR"
	ErrCodeRegistrySearch Code = "REGISTRY_SEARCH_FAILED"
	ErrCodeVersionResolve Code = "VERSION_RESOLVE_FAILED"

	// Output errors
	ErrCodeRender  Code = "RENDER_FAILED"
	ErrCodePublish Code = "PUBLISH_FAILED"

	// Service errors
	ErrCodeBusy     Code = "UPDATE_IN_PROGRESS"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Trace renders the unwrap chain of err, outermost first, one cause per line.
func Trace(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		if depth > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s%T: %s", strings.Repeat("  ", depth), err, err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}

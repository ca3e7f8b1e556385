// Package errors provides structured error types for confoo.
//
// Every package in the module reports failures as an [*Error] carrying a
// machine-readable [Code], so that the CLI and the HTTP API can decide on
// exit status, HTTP status and wording without string matching.
//
// # Error Codes
//
//   - INVALID_*: configuration or input validation failures
//   - NO_SUCH_VERTEX: a boundary condition names a vertex the mesh lacks
//   - NOT_CONVERGED: the optimizer could not find the optimal solution
//   - TRIANGLE_INEQUALITY: the optimized lengths do not form triangles
//   - MISUSE: an API was called in the wrong state
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidMesh, "edge %v-%v has %d triangles", a, b, n)
//	if errors.Is(err, errors.ErrCodeInvalidMesh) {
//	    // Handle malformed mesh
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNotConverged, cgErr, "could not find optimal solution")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeParse         Code = "PARSE_ERROR"

	// Mesh errors
	ErrCodeInvalidMesh        Code = "INVALID_MESH"
	ErrCodeNoSuchVertex       Code = "NO_SUCH_VERTEX"
	ErrCodeTriangleInequality Code = "TRIANGLE_INEQUALITY"

	// Numeric errors
	ErrCodeNotConverged Code = "NOT_CONVERGED"

	// Programmer errors
	ErrCodeMisuse Code = "MISUSE"

	// Infrastructure errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeRender       Code = "RENDER_ERROR"
	ErrCodeCache        Code = "CACHE_ERROR"
	ErrCodeCanceled     Code = "CANCELED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// coder is implemented by error types that carry a code without being an *Error.
type coder interface {
	ErrorCode() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error, or any error exposing
// an ErrorCode method, with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Package errors provides structured error types for titleplot.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the batch runner, CLI and status server
//   - Machine-readable error codes for per-page and per-drawing outcomes
//   - User-friendly error messages in batch summaries
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input and configuration validation failures
//   - *_NOT_FOUND: Resource not found
//   - DEVICE_*, ENGINE_*, PLOT_*, ARTIFACT_*: Plot pipeline failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDeviceUnavailable, "device %q not found", name)
//	if errors.Is(err, errors.ErrCodeDeviceUnavailable) {
//	    // skip this page
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodePlotFailed, origErr, "begin page")
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
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidName   Code = "INVALID_NAME"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeNoRegions    Code = "NO_REGIONS"

	// Plot pipeline errors
	ErrCodeDeviceUnavailable Code = "DEVICE_UNAVAILABLE"
	ErrCodeLayout            Code = "LAYOUT_ERROR"
	ErrCodeEngineBusy        Code = "ENGINE_BUSY"
	ErrCodePlotFailed        Code = "PLOT_FAILED"
	ErrCodeArtifactTimeout   Code = "ARTIFACT_TIMEOUT"
	ErrCodeLockFailed        Code = "LOCK_FAILED"

	// Storage errors
	ErrCodeCacheCorrupt Code = "CACHE_CORRUPT"
	ErrCodeStorage      Code = "STORAGE_ERROR"

	// Timing
	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeCanceled Code = "CANCELED"

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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// Package errors provides structured error types for sdkbench.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the status server
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes separate the two fatal conditions (invalid rules input, a language
// with neither live release data nor a cached snapshot) from the per-cell
// conditions that are recorded in the report but never abort a run:
//
//   - CONFIG_ERROR: malformed rules or unresolved version references; fatal
//     before any cell is scheduled.
//   - CATALOG_UNAVAILABLE: release fetching exhausted retries and no cached
//     snapshot exists for the language; that language is excluded.
//   - ENV_START_ERROR, READINESS_TIMEOUT, PROTOCOL_ERROR, TEARDOWN_ERROR:
//     localized to a single matrix cell.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfig, "rule %d: unknown language %q", i, lang)
//	if errors.Is(err, errors.ErrCodeConfig) {
//	    // Abort before scheduling
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeEnvStart, origErr, "start server for cell %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors (fatal before scheduling)
	ErrCodeConfig          Code = "CONFIG_ERROR"
	ErrCodeInvalidLanguage Code = "INVALID_LANGUAGE"
	ErrCodeInvalidRules    Code = "INVALID_RULES"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"

	// Catalog errors
	ErrCodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"
	ErrCodeRateLimited        Code = "RATE_LIMITED"
	ErrCodeNetwork            Code = "NETWORK_ERROR"
	ErrCodeNotFound           Code = "NOT_FOUND"

	// Per-cell execution errors (recorded, never run-fatal)
	ErrCodeEnvStart         Code = "ENV_START_ERROR"
	ErrCodeReadinessTimeout Code = "READINESS_TIMEOUT"
	ErrCodeProtocol         Code = "PROTOCOL_ERROR"
	ErrCodeTeardown         Code = "TEARDOWN_ERROR"
	ErrCodePortExhausted    Code = "PORT_EXHAUSTED"

	// Internal errors
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
		if errors.As(err, &e) {
			if e.Code == code {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// GetCode extracts the error code from err.
// Returns an empty code if err is not an *Error.
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

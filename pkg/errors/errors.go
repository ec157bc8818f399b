// Package errors provides structured error types for nocsched.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, API and library callers
//   - Machine-readable error codes for programmatic handling
//   - A clear split between configuration mistakes, external tool failures
//     and internal invariant violations
//
// # Error Classes
//
// Codes fall into three classes:
//   - Configuration: bad inputs (files, flows, mappings, topologies). Fix the
//     input and run again.
//   - External: the solver could not be reached, failed, timed out or produced
//     unreadable output. Callers may retry or substitute another solver.
//   - Inconsistency: an internal invariant (matrix shape, packet alignment)
//     was violated. These indicate a bug and must never be ignored.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnmappedTask, "task %q has no node", task)
//	if errors.Is(err, errors.ErrCodeUnmappedTask) {
//	    // Handle mapping error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSolverFailed, origErr, "minizinc exited")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidTopology Code = "INVALID_TOPOLOGY"
	ErrCodeInvalidFlow     Code = "INVALID_FLOW"
	ErrCodeUnmappedTask    Code = "UNMAPPED_TASK"
	ErrCodeNodeNotFound    Code = "NODE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeNotFound        Code = "NOT_FOUND"

	// External tool errors
	ErrCodeSolverUnavailable Code = "SOLVER_UNAVAILABLE"
	ErrCodeSolverFailed      Code = "SOLVER_FAILED"
	ErrCodeSolverOutput      Code = "SOLVER_OUTPUT"
	ErrCodeTimeout           Code = "TIMEOUT"

	// Internal errors
	ErrCodeInconsistentModel Code = "INCONSISTENT_MODEL"
	ErrCodeInternal          Code = "INTERNAL_ERROR"
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
		return e.Message
	}
	return err.Error()
}

// IsExternal reports whether err stems from the external solver rather than
// from the inputs. External failures are candidates for retry or for
// switching to another solver backend.
func IsExternal(err error) bool {
	switch GetCode(err) {
	case ErrCodeSolverUnavailable, ErrCodeSolverFailed, ErrCodeSolverOutput, ErrCodeTimeout:
		return true
	}
	return false
}

// IsConfiguration reports whether err was caused by invalid user input.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeInvalidTopology, ErrCodeInvalidFlow,
		ErrCodeUnmappedTask, ErrCodeNodeNotFound, ErrCodeFileNotFound:
		return true
	}
	return false
}

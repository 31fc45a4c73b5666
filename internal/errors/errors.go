package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// OutOfRange indicates a position or offset outside the document
	OutOfRange ErrorCode = "OUT_OF_RANGE"
	// UnknownDocument indicates the engine has no document for the URI
	UnknownDocument ErrorCode = "UNKNOWN_DOCUMENT"
	// WorkerUnavailable indicates the worker could not be started or crashed
	WorkerUnavailable ErrorCode = "WORKER_UNAVAILABLE"
	// StaleConfiguration indicates the worker was torn down mid-request
	StaleConfiguration ErrorCode = "STALE_CONFIGURATION"
	// ValidationFailure indicates a diagnostics request failed
	ValidationFailure ErrorCode = "VALIDATION_FAILURE"
	// Cancelled indicates the caller abandoned the request
	Cancelled ErrorCode = "CANCELLED"
	// Timeout indicates the worker did not answer in time
	Timeout ErrorCode = "TIMEOUT"
	// InvalidParams indicates a malformed request
	InvalidParams ErrorCode = "INVALID_PARAMS"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration key
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
}

// BridgeError is the error type returned across the bridge.
type BridgeError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a BridgeError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *BridgeError {
	return &BridgeError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *BridgeError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.cause
}

// Is matches another BridgeError by code so errors.Is(err, &BridgeError{Code: X}) works.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *BridgeError) WithDetails(details interface{}) *BridgeError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first BridgeError in the chain.
// Context errors map to Cancelled and Timeout; anything else is InternalError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be.Code
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return Cancelled
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return InternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// FromContext converts a context error into a BridgeError. Returns nil for nil.
func FromContext(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return New(Timeout, "request timed out", err)
	default:
		return New(Cancelled, "request cancelled", err)
	}
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	WorkerUnavailable: {
		{
			Type:        EditConfig,
			Key:         "worker.mode",
			Description: "Switch to the in-process worker",
		},
		{
			Type:        RunCommand,
			Command:     "tsbridge worker --stdio",
			Description: "Check that the worker binary starts",
		},
	},
	Timeout: {
		{
			Type:        EditConfig,
			Key:         "worker.requestTimeoutMs",
			Description: "Raise the worker request timeout",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

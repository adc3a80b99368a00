// Package errors defines stable error codes for federation failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NoAvailableSource indicates no configured source passed candidate selection
	NoAvailableSource ErrorCode = "NO_AVAILABLE_SOURCE"
	// OperationTimeout indicates a single source attempt exceeded its deadline
	OperationTimeout ErrorCode = "OPERATION_TIMEOUT"
	// SourceOperationFailed indicates a specific backend call failed
	SourceOperationFailed ErrorCode = "SOURCE_OPERATION_FAILED"
	// ReadExhausted indicates every read candidate failed
	ReadExhausted ErrorCode = "READ_EXHAUSTED"
	// RouterShuttingDown indicates an operation arrived after shutdown began
	RouterShuttingDown ErrorCode = "ROUTER_SHUTTING_DOWN"
	// SourceNotFound indicates a source id is not in the registry
	SourceNotFound ErrorCode = "SOURCE_NOT_FOUND"
	// RecordNotFound indicates no source holds the requested key
	RecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// ConfigInvalid indicates configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FedError represents a federation error with a stable code and message
type FedError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new FedError
func New(code ErrorCode, message string, cause error) *FedError {
	return &FedError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new FedError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FedError {
	return &FedError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *FedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *FedError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *FedError) WithDetails(details interface{}) *FedError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns InternalError for errors that carry no code.
func CodeOf(err error) ErrorCode {
	var fe *FedError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return InternalError
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

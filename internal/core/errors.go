// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Input errors
	ErrInvalidTicker  = &Error{Code: "INVALID_TICKER", Message: "invalid ticker symbol"}
	ErrInvalidRequest = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrUnauthorized   = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Provider errors, recovered by the fallback resolver
	ErrProviderUnavailable = &Error{Code: "PROVIDER_UNAVAILABLE", Message: "provider unavailable"}

	// Analysis errors, recovered by the owning aggregator
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
	ErrNoAdapters    = &Error{Code: "NO_ADAPTERS", Message: "no provider adapters configured for category"}

	// Storage errors
	ErrSignalNotFound = &Error{Code: "SIGNAL_NOT_FOUND", Message: "signal not found"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)

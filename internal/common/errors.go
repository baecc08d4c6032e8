package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Callers branch with errors.Is; the kinds are deliberately
// coarse so that handling policy stays in one place per layer.
var (
	// ErrConfiguration is fatal: a client or worker was constructed from an
	// unusable configuration (missing API key, bad encryption key, ...).
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation fails a single task, never the worker process.
	ErrValidation = errors.New("validation failed")

	// ErrParse means the LLM response could not be decoded as JSON. It is
	// degraded to a per-range error record by the caller.
	ErrParse = errors.New("response parse failed")

	// ErrBackend is a transient queue backend failure (connectivity,
	// timeouts). The poll loop retries it by sleeping.
	ErrBackend = errors.New("queue backend unavailable")

	// ErrDecrypt indicates a key mismatch or a tampered/corrupted payload.
	// Distinct from ErrNotFound: it implies data loss risk and is logged loud.
	ErrDecrypt = errors.New("payload decryption failed")

	ErrNotFound = errors.New("resource not found")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ConfigurationError(message string) error {
	return NewAppError("CONFIG_ERROR", message, ErrConfiguration)
}

func ValidationError(message string) error {
	return NewAppError("VALIDATION_ERROR", message, ErrValidation)
}

func ValidationErrorf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

// ParseError carries the raw model output alongside the decode failure so the
// offending payload can be inspected from logs.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse model response as JSON: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return ErrParse }

func NewParseError(raw string, cause error) *ParseError {
	return &ParseError{Raw: raw, Cause: cause}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

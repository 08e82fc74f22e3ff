// Package errors provides structured error types for the sheetpress composer.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the compose pipeline
//   - Machine-readable error codes for programmatic handling
//   - A severity split between recoverable and fatal failures
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_MISSING: Required resources absent
//   - FETCH_*/TIMEOUT: Transport failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Severity
//
// Every error carries a severity. Recoverable errors describe a single
// panel that can be substituted with a placeholder; fatal errors abort the
// whole composition. The composer decides severity from the strict/lenient
// partition, so the same underlying failure (say, a decode error) can be
// recoverable for a title block and fatal for a floor plan.
//
// # Usage
//
//	err := errors.Fatal(errors.ErrCodeStrictPanelMissing, "panel %q not supplied", key)
//	if errors.Is(err, errors.ErrCodeStrictPanelMissing) {
//	    // Reject the request
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCodec, origErr, "decode panel %q", key)
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
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPanel   Code = "INVALID_PANEL"
	ErrCodeInvalidLayout  Code = "INVALID_LAYOUT"
	ErrCodeInvalidCatalog Code = "INVALID_CATALOG"

	// Panel availability
	ErrCodeStrictPanelMissing Code = "STRICT_PANEL_MISSING"

	// Quality gates
	ErrCodeOccupancyBelowMin Code = "OCCUPANCY_BELOW_MIN"
	ErrCodeRenderSanity      Code = "RENDER_SANITY"

	// Image processing
	ErrCodeTrimFailed Code = "TRIM_FAILED"
	ErrCodeCodec      Code = "CODEC_ERROR"

	// Transport errors
	ErrCodeFetch   Code = "FETCH_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Severity classifies how the composer must react to an error.
type Severity int

const (
	// SeverityRecoverable marks failures that degrade to a labeled
	// placeholder for lenient panels.
	SeverityRecoverable Severity = iota

	// SeverityFatal marks failures that abort the whole composition.
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// Error is a structured error with a code, severity and optional cause.
type Error struct {
	Code     Code     // Machine-readable error code
	Severity Severity // Whether composition can continue
	Message  string   // Human-readable message
	Cause    error    // Underlying error (optional)
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

// New creates a recoverable Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Severity: SeverityRecoverable,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Fatal creates a fatal Error with the given code and formatted message.
func Fatal(code Code, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a recoverable Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Severity: SeverityRecoverable,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}

// Escalate returns a copy of err promoted to fatal severity. Non-*Error
// values are wrapped under INTERNAL_ERROR so the caller always gets a
// structured fatal error back.
func Escalate(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		out := *e
		out.Severity = SeverityFatal
		return &out
	}
	return &Error{
		Code:     ErrCodeInternal,
		Severity: SeverityFatal,
		Message:  err.Error(),
		Cause:    err,
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

// IsFatal reports whether err carries fatal severity. Errors that are not
// *Error are treated as fatal: an unclassified failure must not silently
// degrade to a placeholder.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return true
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

// GateError reports a quality-gate rejection with the measured value and
// the configured minimum, so callers can surface "measured vs required"
// without parsing message strings.
type GateError struct {
	Key      string  // Canonical panel key that failed the gate
	Reason   string  // "occupancy" or "render-sanity"
	Measured float64 // Observed value
	Required float64 // Configured minimum
}

// Error implements the error interface.
func (e *GateError) Error() string {
	return fmt.Sprintf("panel %q failed %s gate: measured %.3f, required %.3f",
		e.Key, e.Reason, e.Measured, e.Required)
}

// AsGateError extracts a *GateError from an error chain, if present.
func AsGateError(err error) (*GateError, bool) {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

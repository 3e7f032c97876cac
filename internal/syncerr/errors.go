// Package syncerr provides structured error types for tracksync.
package syncerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for tracksync.
const (
	// Config errors are fatal at startup, before any store is touched.
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"

	// Store errors.
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeCreateFailed        Code = "CREATE_FAILED"

	// Run errors.
	CodeRunFailed Code = "RUN_FAILED"
)

// SyncError is the structured error type for tracksync.
type SyncError struct {
	Code  Code
	What  string
	Why   string
	Fix   string
	Cause error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SyncError with the same code.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// UserMessage returns a user-friendly message for CLI output.
func (e *SyncError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// WithCause returns a copy of the error with the given cause.
func (e *SyncError) WithCause(err error) *SyncError {
	return &SyncError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrConfigMissing returns an error for a missing required configuration field.
func ErrConfigMissing(field, envVar string) *SyncError {
	return &SyncError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Set the %s environment variable or add '%s' to .tracksync.yaml", envVar, field),
	}
}

// ErrConfigInvalid returns an error for an invalid configuration value.
func ErrConfigInvalid(field, reason string) *SyncError {
	return &SyncError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .tracksync.yaml and the TRACKSYNC_* environment variables",
	}
}

// ErrUpstreamUnavailable returns an error when a store cannot be reached.
// Retryable by re-running the whole pass; tracksync never auto-retries.
func ErrUpstreamUnavailable(store, operation string, cause error) *SyncError {
	return &SyncError{
		Code:  CodeUpstreamUnavailable,
		What:  fmt.Sprintf("%s is unreachable during %s", store, operation),
		Why:   "Network or authentication failure reaching the store",
		Fix:   "Check connectivity and credentials, then re-run the sync",
		Cause: cause,
	}
}

// ErrCreateFailed returns an error when a store rejects a create.
// Surfaced per-entity; never aborts the run.
func ErrCreateFailed(store, kind, title string, cause error) *SyncError {
	return &SyncError{
		Code:  CodeCreateFailed,
		What:  fmt.Sprintf("%s rejected creating %s %q", store, kind, title),
		Cause: cause,
	}
}

// Wrap wraps a generic error into a SyncError with unknown code.
func Wrap(err error, what string) *SyncError {
	return &SyncError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}

// AsSyncError attempts to convert an error to a SyncError.
// Returns nil if the error is not a SyncError.
func AsSyncError(err error) *SyncError {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return nil
}

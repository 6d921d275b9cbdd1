// Package errors provides centralized error definitions and error handling
// utilities for the weft codebase. It defines domain-specific errors for the
// patch and lock subsystems, error constructors with context wrapping, and
// classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific subsystems:
//   - ParseError: malformed patch document syntax
//   - ApplyError: a file operation that failed validation or commit
//   - LockError: lock acquisition or release failures
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewParseError("unknown operation header", 4)
//	err := errors.NewApplyError("update", "a.txt", errors.ErrContextMismatch).WithHunk(2)
//	err := errors.NewLockError("could not acquire", "a.txt", errors.ErrLockConflict)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrLockConflict) { ... }
//
//	var applyErr *errors.ApplyError
//	if errors.As(err, &applyErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityInfo is for informational conditions that don't indicate a problem.
	SeverityInfo Severity = iota
	// SeverityWarning is for conditions that might indicate a problem but aren't fatal.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Patch application sentinel errors
var (
	// ErrTargetExists indicates an Add File target already exists on disk.
	ErrTargetExists = New("target file already exists")
	// ErrTargetNotFound indicates an Update or Delete target is absent.
	ErrTargetNotFound = New("target file not found")
	// ErrContextMismatch indicates a hunk's context did not match disk content.
	ErrContextMismatch = New("hunk context does not match file content")
	// ErrEmptyUpdate indicates an Update File block with no hunks.
	ErrEmptyUpdate = New("update block contains no hunks")
	// ErrInvalidPath indicates an absolute or traversing patch path.
	ErrInvalidPath = New("invalid patch path")
)

// Lock sentinel errors
var (
	// ErrLockConflict indicates another live owner holds the lock.
	ErrLockConflict = New("lock held by another owner")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ParseError represents malformed patch document syntax. Parse errors are
// fatal: the document is rejected as a whole and nothing is applied.
//
// Example:
//
//	err := errors.NewParseError("unknown operation header", 4)
//	fmt.Println(err) // "parse error [line=4]: unknown operation header"
type ParseError struct {
	baseError
	Line int // 1-based line in the patch document, 0 if unknown
}

// NewParseError creates a new ParseError at the given document line.
func NewParseError(message string, line int) *ParseError {
	return &ParseError{
		baseError: baseError{
			message:  message,
			severity: SeverityError,
		},
		Line: line,
	}
}

// WithCause adds a cause to the error.
func (e *ParseError) WithCause(cause error) *ParseError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	prefix := "parse error"
	if e.Line > 0 {
		prefix = fmt.Sprintf("parse error [line=%d]", e.Line)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ParseError) Is(target error) bool {
	if _, ok := target.(*ParseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ApplyError represents a file operation that failed validation or commit.
//
// Example:
//
//	err := errors.NewApplyError("update", "pkg/a.go", errors.ErrContextMismatch).WithHunk(2)
//	fmt.Println(err) // "apply error [op=update, path=pkg/a.go, hunk=2]: ..."
type ApplyError struct {
	baseError
	Op   string // "add", "update", or "delete"
	Path string // Path relative to the base directory
	Hunk int    // 0-based hunk index for context mismatches, -1 if not set
}

// NewApplyError creates a new ApplyError for the given operation and path.
func NewApplyError(op, path string, cause error) *ApplyError {
	return &ApplyError{
		baseError: baseError{
			message:  "operation failed",
			cause:    cause,
			severity: SeverityError,
		},
		Op:   op,
		Path: path,
		Hunk: -1,
	}
}

// WithHunk records the 0-based index of the hunk that failed to match.
func (e *ApplyError) WithHunk(idx int) *ApplyError {
	e.Hunk = idx
	return e
}

// WithMessage replaces the default message.
func (e *ApplyError) WithMessage(msg string) *ApplyError {
	e.message = msg
	return e
}

// Error returns the formatted error message.
func (e *ApplyError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Hunk >= 0 {
		parts = append(parts, fmt.Sprintf("hunk=%d", e.Hunk))
	}

	prefix := "apply error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("apply error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ApplyError) Is(target error) bool {
	if _, ok := target.(*ApplyError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// LockError represents lock acquisition or release failures.
// Lock conflicts are retryable: the holding owner may release, or the lock
// may pass the stale threshold and become reclaimable.
//
// Example:
//
//	err := errors.NewLockError("could not acquire", "pkg/a.go", errors.ErrLockConflict).
//		WithOwner("story-7")
type LockError struct {
	baseError
	Path  string // Locked path
	Owner string // Owner currently holding the lock, if known
}

// NewLockError creates a new LockError.
func NewLockError(message, path string, cause error) *LockError {
	return &LockError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: errors.Is(cause, ErrLockConflict),
		},
		Path: path,
	}
}

// WithOwner records the owner currently holding the lock.
func (e *LockError) WithOwner(owner string) *LockError {
	e.Owner = owner
	return e
}

// Error returns the formatted error message.
func (e *LockError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Owner != "" {
		parts = append(parts, fmt.Sprintf("owner=%s", e.Owner))
	}

	prefix := "lock error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("lock error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LockError) Is(target error) bool {
	if _, ok := target.(*LockError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// classified is implemented by errors that carry severity and retry hints.
type classified interface {
	error
	Severity() Severity
	IsRetryable() bool
}

// IsRetryable returns true if the error represents a transient condition that
// may succeed on retry. Lock conflicts are the only retryable condition in
// this codebase: precondition violations and parse errors never are.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ce classified
	if As(err, &ce) {
		return ce.IsRetryable()
	}

	return Is(err, ErrLockConflict)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't carry their own classification.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var ce classified
	if As(err, &ce) {
		return ce.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

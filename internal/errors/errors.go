package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorInit     = 2   // Indicates the sampling engine could not be started.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
//
// Returns:
//   - string: The error message string.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
// It allows for the creation of configuration-specific errors with dynamic
// content.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// InitError represents a fatal engine startup failure: the counter query
// context or a mandatory counter subscription could not be created. It is the
// only error class surfaced to callers of Start; everything after startup is
// absorbed internally.
type InitError struct {
	// Component names the part of the engine that failed to initialize
	// (e.g., "query", "cpu counter").
	Component string
	// Cause is the underlying error that triggered the failure.
	Cause error
}

// Error returns a formatted message naming the failed component.
//
// Returns:
//   - string: The error message string.
func (e InitError) Error() string {
	return fmt.Sprintf("perfmon init: %s: %v", e.Component, e.Cause)
}

// Unwrap returns the original wrapped error, allowing for error chain
// inspection (e.g., using errors.Is or errors.As).
//
// Returns:
//   - error: The underlying cause of the InitError.
func (e InitError) Unwrap() error { return e.Cause }

// CounterUnavailableError marks an optional counter that could not be
// subscribed (e.g., GPU counters on a machine whose driver does not expose
// them). The engine degrades to empty results instead of failing.
type CounterUnavailableError struct {
	// Path is the counter path that could not be subscribed.
	Path string
	// Cause is the underlying subsystem error.
	Cause error
}

// Error returns a formatted message naming the unavailable counter path.
//
// Returns:
//   - string: The error message string.
func (e CounterUnavailableError) Error() string {
	return fmt.Sprintf("counter unavailable: %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying subsystem error.
//
// Returns:
//   - error: The underlying cause of the CounterUnavailableError.
func (e CounterUnavailableError) Unwrap() error { return e.Cause }

// CollectionError represents a transient failure of a single collection
// round. The failed round is skipped and the previously published values
// remain visible; the sampling loop continues.
type CollectionError struct {
	// Cause is the underlying error returned by the counter subsystem.
	Cause error
}

// Error returns the error message from the underlying cause.
//
// Returns:
//   - string: The error message string from the wrapped error.
func (e CollectionError) Error() string { return e.Cause.Error() }

// Unwrap returns the original wrapped error.
//
// Returns:
//   - error: The underlying cause of the CollectionError.
func (e CollectionError) Unwrap() error { return e.Cause }

// ResolutionError indicates that no counter instance currently matches the
// target process identifier. Process-scoped CPU readings keep their last
// known value until a later round resolves the identity.
type ResolutionError struct {
	// Executable is the process base name whose instances were probed.
	Executable string
	// Candidates is the number of instance paths that were examined.
	Candidates int
}

// Error returns a formatted message describing the failed resolution.
//
// Returns:
//   - string: The error message string.
func (e ResolutionError) Error() string {
	return fmt.Sprintf("no counter instance for %q matched the target pid (%d candidates)", e.Executable, e.Candidates)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
//
// Parameters:
//   - err: The error to check.
//
// Returns:
//   - bool: true if the error is a context error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks structurally invalid or incomplete step output.
	// Not retried unless explicitly wrapped with Retryable.
	ErrValidation = errors.New("validation failed")
	// ErrProviderTimeout marks a capability call that exceeded its deadline
	// or failed transiently. Retried up to the step's bound.
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrProviderUnavailable marks a provider that cannot serve at all.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrCancelled marks a run cancelled by its caller.
	ErrCancelled = errors.New("cancelled")
)

// ErrorKind classifies a stage failure for callers.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindProviderTimeout     ErrorKind = "provider_timeout"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindCancelled           ErrorKind = "cancelled"
	KindInternal            ErrorKind = "internal_error"
)

// KindOf maps an error onto the taxonomy. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindProviderTimeout
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// Validationf returns an ErrValidation wrapped with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Timeoutf returns an ErrProviderTimeout wrapped with a formatted message.
func Timeoutf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderTimeout, fmt.Sprintf(format, args...))
}

// Unavailablef returns an ErrProviderUnavailable wrapped with a formatted message.
func Unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, fmt.Sprintf(format, args...))
}

type retryableError struct{ err error }

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

// Retryable marks err so the stage machine re-attempts the step. The kind of
// the wrapped error is preserved for reporting once attempts are exhausted.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether a step failing with err may be re-attempted.
// Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || KindOf(err) == KindCancelled {
		return false
	}
	var r *retryableError
	if errors.As(err, &r) {
		return true
	}
	return KindOf(err) == KindProviderTimeout
}

// StageError reports which stage and step failed, the error kind and the
// number of attempts made. It is the value stored in StageState.Error.
type StageError struct {
	Stage    string    `json:"stage"`
	Step     string    `json:"step"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Attempts int       `json:"attempts"`
	cause    error
}

// NewStageError classifies cause and records where it happened.
func NewStageError(stage, step string, attempts int, cause error) *StageError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &StageError{
		Stage:    stage,
		Step:     step,
		Kind:     KindOf(cause),
		Message:  msg,
		Attempts: attempts,
		cause:    cause,
	}
}

// Error implements error.
func (e *StageError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("stage %s failed (%s): %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("stage %s failed at step %s (%s): %s", e.Stage, e.Step, e.Kind, e.Message)
}

// Unwrap exposes the original cause so errors.Is works against the sentinels.
func (e *StageError) Unwrap() error { return e.cause }

// Is lets a StageError restored from a record (no cause) still match its kind.
func (e *StageError) Is(target error) bool {
	if e.cause != nil {
		return false
	}
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindProviderTimeout:
		return target == ErrProviderTimeout
	case KindProviderUnavailable:
		return target == ErrProviderUnavailable
	case KindCancelled:
		return target == ErrCancelled
	}
	return false
}

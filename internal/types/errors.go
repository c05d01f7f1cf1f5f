package types

import "fmt"

// RetryableError marks a transient failure (rate limit, 5xx, timeout) that the
// caller may retry.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps an existing error as a RetryableError.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// FatalError marks a failure that must end the run with a non-zero exit,
// such as an authentication failure or an unreachable store.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s error: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps err as a FatalError raised during stage.
func NewFatalError(stage string, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

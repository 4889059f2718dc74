// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrQueueFull indicates the task queue stayed full for the whole submit timeout
	ErrQueueFull = errors.New("task queue is full")

	// ErrInvalidState indicates an operation is not allowed in the current pool state
	ErrInvalidState = errors.New("invalid pool state")

	// ErrTypeMismatch indicates a result was extracted as the wrong type
	ErrTypeMismatch = errors.New("result type mismatch")

	// ErrEmptyResult indicates a result holds no value
	ErrEmptyResult = errors.New("result holds no value")

	// ErrPoolNotRunning indicates the pool has not been started
	ErrPoolNotRunning = errors.New("thread pool is not running")

	// ErrPoolStopped indicates the pool is shutting down or has stopped
	ErrPoolStopped = errors.New("thread pool is stopped")

	// ErrInvalidArgument indicates invalid input
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRateLimited indicates the submission rate limiter refused the task
	ErrRateLimited = errors.New("submission rate limited")

	// ErrTaskPanicked indicates the task panicked during execution
	ErrTaskPanicked = errors.New("task panicked")
)

// PoolError represents an error raised while handling a task
type PoolError struct {
	// Operation is the name of the operation where the error occurred
	Operation string

	// TaskID identifies the task involved, zero when not applicable
	TaskID uint64

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *PoolError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("threadpool error in operation %s (task %d): %v", e.Operation, e.TaskID, e.Cause)
	}
	return fmt.Sprintf("threadpool error in operation %s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *PoolError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *PoolError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewPoolError creates a new PoolError
func NewPoolError(operation string, taskID uint64, cause error) *PoolError {
	return &PoolError{
		Operation: operation,
		TaskID:    taskID,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *PoolError) WithContext(key string, value interface{}) *PoolError {
	e.Context[key] = value
	return e
}

// IsPanic reports whether err records a recovered task panic
func IsPanic(err error) bool {
	return errors.Is(err, ErrTaskPanicked)
}

// AsPoolError finds the first PoolError in err's chain
func AsPoolError(err error, target **PoolError) bool {
	return errors.As(err, target)
}

// Package types defines core interfaces and types for the thread pool
package types

import (
	"time"
)

// PoolMode defines how a pool sizes its worker set
type PoolMode int

const (
	// ModeFixed keeps the worker count set at start
	ModeFixed PoolMode = iota
	// ModeCached grows on demand and reaps idle workers
	ModeCached
)

// String returns the string representation of PoolMode
func (m PoolMode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeCached:
		return "cached"
	default:
		return "unknown"
	}
}

// ParsePoolMode parses "fixed" or "cached"
func ParsePoolMode(s string) (PoolMode, error) {
	switch s {
	case "fixed", "FIXED", "":
		return ModeFixed, nil
	case "cached", "CACHED":
		return ModeCached, nil
	default:
		return ModeFixed, ErrInvalidArgument
	}
}

// PoolState defines the lifecycle state of a pool
type PoolState int32

const (
	// StateUnstarted pool has been created but not started
	StateUnstarted PoolState = iota
	// StateRunning pool accepts and executes tasks
	StateRunning
	// StateStopping shutdown was requested, workers are draining
	StateStopping
	// StateStopped every worker has exited
	StateStopped
)

// String returns the string representation of PoolState
func (s PoolState) String() string {
	switch s {
	case StateUnstarted:
		return "Unstarted"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Task is a unit of work that produces a value of any type
type Task interface {
	// Run executes the task and returns its value
	Run() any
}

// TaskFunc adapts a plain function to the Task interface
type TaskFunc func() any

// Run calls f
func (f TaskFunc) Run() any {
	return f()
}

// ErrorHandler defines an error handling function
type ErrorHandler func(error) error

// PoolStats defines a snapshot of pool statistics
type PoolStats struct {
	Name  string
	Mode  PoolMode
	State PoolState

	// InitialWorkers is the worker count passed to Start
	InitialWorkers int
	// CurrentWorkers is the number of registered workers
	CurrentWorkers int
	// IdleWorkers is the number of workers not executing a task
	IdleWorkers int
	// MaxWorkers is the CACHED growth threshold
	MaxWorkers int

	// QueueLength is the current number of pending tasks
	QueueLength int
	// QueueCapacity is the capacity of the queue
	QueueCapacity int

	TotalSubmitted int64
	TotalRejected  int64
	TotalCompleted int64
	TotalFailed    int64

	IdleTimeout time.Duration
}

// BusyWorkers returns the number of workers executing a task
func (s PoolStats) BusyWorkers() int {
	return s.CurrentWorkers - s.IdleWorkers
}

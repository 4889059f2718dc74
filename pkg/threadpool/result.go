package threadpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
)

// Result is the one-shot hand-off between the worker that runs a task and
// the submitter waiting for it. It is written exactly once.
type Result struct {
	taskID uint64
	clock  types.Clock

	done chan struct{}
	once sync.Once

	// value and err are only read after done is closed
	value Any
	err   error

	valid atomic.Bool
}

func newResult(taskID uint64, clock types.Clock) *Result {
	r := &Result{
		taskID: taskID,
		clock:  clock,
		done:   make(chan struct{}),
	}
	r.valid.Store(true)
	return r
}

// newInvalidResult returns a result that is already resolved to an empty
// value and carries the reason the task was not accepted.
func newInvalidResult(taskID uint64, clock types.Clock, err error) *Result {
	r := &Result{
		taskID: taskID,
		clock:  clock,
		done:   make(chan struct{}),
	}
	r.resolve(Any{}, err)
	return r
}

// resolve stores the task outcome and releases every waiter. Only the first
// call has any effect.
func (r *Result) resolve(v Any, err error) bool {
	resolved := false
	r.once.Do(func() {
		r.value = v
		r.err = err
		close(r.done)
		resolved = true
	})
	return resolved
}

// reject resolves a result whose task will never run. The caller must own
// the task, so no worker can resolve r concurrently.
func (r *Result) reject(err error) {
	r.valid.Store(false)
	r.resolve(Any{}, err)
}

// TaskID returns the id assigned to the task at submission
func (r *Result) TaskID() uint64 {
	return r.taskID
}

// IsValid reports whether the task was accepted and will run
func (r *Result) IsValid() bool {
	return r.valid.Load()
}

// Done returns a channel closed once the result is available
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// IsDone reports whether the result is available without blocking
func (r *Result) IsDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Get blocks until the task completes and returns its value. An invalid
// result, or one whose task panicked, yields an empty Any; see Err.
func (r *Result) Get() Any {
	<-r.done
	return r.value
}

// GetContext is like Get but gives up when ctx is done
func (r *Result) GetContext(ctx context.Context) (Any, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		return Any{}, ctx.Err()
	}
}

// GetTimeout is like Get but gives up after timeout. The boolean reports
// whether the result was available.
func (r *Result) GetTimeout(timeout time.Duration) (Any, bool, error) {
	timer := r.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return r.value, true, r.err
	case <-timer.C():
		return Any{}, false, nil
	}
}

// Err blocks until the result is available and returns the reason the
// task produced no value, nil on success.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Wait blocks until the result is available and returns Err
func (r *Result) Wait() error {
	return r.Err()
}

package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrQueueFull", ErrQueueFull},
		{"ErrInvalidState", ErrInvalidState},
		{"ErrTypeMismatch", ErrTypeMismatch},
		{"ErrEmptyResult", ErrEmptyResult},
		{"ErrPoolNotRunning", ErrPoolNotRunning},
		{"ErrPoolStopped", ErrPoolStopped},
		{"ErrInvalidArgument", ErrInvalidArgument},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrTaskPanicked", ErrTaskPanicked},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("expected error, got nil")
			}
			if tt.err.Error() == "" {
				t.Errorf("expected non-empty error message")
			}
			if seen[tt.err.Error()] {
				t.Errorf("duplicate error message %q", tt.err.Error())
			}
			seen[tt.err.Error()] = true
		})
	}
}

func TestPoolError(t *testing.T) {
	t.Run("Basic Error", func(t *testing.T) {
		originalErr := errors.New("original error")
		poolErr := NewPoolError("submit", 0, originalErr)

		if poolErr.Operation != "submit" {
			t.Errorf("expected operation 'submit', got %q", poolErr.Operation)
		}
		if poolErr.Cause != originalErr {
			t.Errorf("expected cause to be original error")
		}

		expectedMsg := "threadpool error in operation submit: original error"
		if poolErr.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, poolErr.Error())
		}
	})

	t.Run("Message With Task ID", func(t *testing.T) {
		poolErr := NewPoolError("execute", 7, ErrTaskPanicked)

		expectedMsg := "threadpool error in operation execute (task 7): task panicked"
		if poolErr.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, poolErr.Error())
		}
	})

	t.Run("Error Unwrapping", func(t *testing.T) {
		originalErr := errors.New("original error")
		poolErr := NewPoolError("execute", 1, originalErr)

		if errors.Unwrap(poolErr) != originalErr {
			t.Errorf("expected unwrapped error to be original error")
		}
	})

	t.Run("Error Is", func(t *testing.T) {
		poolErr := NewPoolError("submit", 3, ErrQueueFull)

		if !errors.Is(poolErr, ErrQueueFull) {
			t.Errorf("expected error to be ErrQueueFull")
		}
		if errors.Is(poolErr, ErrPoolStopped) {
			t.Errorf("expected error not to be ErrPoolStopped")
		}

		wrapped := fmt.Errorf("outer: %w", poolErr)
		var target *PoolError
		if !errors.As(wrapped, &target) {
			t.Fatalf("expected errors.As to find PoolError")
		}
		if target.TaskID != 3 {
			t.Errorf("expected task id 3, got %d", target.TaskID)
		}
	})

	t.Run("WithContext", func(t *testing.T) {
		poolErr := NewPoolError("execute", 1, ErrTaskPanicked)
		poolErr.WithContext("worker_id", uint64(4)).WithContext("stack_trace", "goroutine 1")

		if len(poolErr.Context) != 2 {
			t.Errorf("expected 2 context items, got %d", len(poolErr.Context))
		}
		if poolErr.Context["worker_id"] != uint64(4) {
			t.Errorf("expected worker_id to be 4, got %v", poolErr.Context["worker_id"])
		}
	})
}

func TestPanicHelpers(t *testing.T) {
	panicErr := NewPoolError("execute", 9, fmt.Errorf("%w: boom", ErrTaskPanicked))

	if !IsPanic(panicErr) {
		t.Errorf("expected IsPanic to be true for a recovered panic")
	}
	if IsPanic(errors.New("plain failure")) {
		t.Errorf("expected IsPanic to be false for a plain error")
	}

	var target *PoolError
	if !AsPoolError(fmt.Errorf("wrapped: %w", panicErr), &target) {
		t.Fatalf("expected AsPoolError to find the PoolError")
	}
	if target.Operation != "execute" {
		t.Errorf("expected operation execute, got %s", target.Operation)
	}
	if AsPoolError(ErrQueueFull, &target) {
		t.Errorf("expected AsPoolError to be false for a sentinel")
	}
}

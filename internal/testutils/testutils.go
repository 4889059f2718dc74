// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestConfig test configuration
type TestConfig struct {
	Timeout time.Duration
	Tick    time.Duration
}

// TestContext simplified test context
type TestContext struct {
	t       *testing.T
	config  *TestConfig
	cleanup []func()
	mu      sync.Mutex
}

// NewTestContext creates new test context and registers its cleanup with t
func NewTestContext(t *testing.T, config *TestConfig) *TestContext {
	if config == nil {
		config = &TestConfig{
			Timeout: 5 * time.Second,
			Tick:    5 * time.Millisecond,
		}
	}

	tc := &TestContext{
		t:       t,
		config:  config,
		cleanup: make([]func(), 0),
	}
	t.Cleanup(tc.Cleanup)
	return tc
}

// T returns testing.T instance
func (tc *TestContext) T() *testing.T {
	return tc.t
}

// Context returns context with timeout
func (tc *TestContext) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), tc.config.Timeout)
	tc.AddCleanup(cancel)
	return ctx
}

// AddCleanup adds cleanup function
func (tc *TestContext) AddCleanup(fn func()) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cleanup = append(tc.cleanup, fn)
}

// Cleanup executes cleanup functions in reverse order
func (tc *TestContext) Cleanup() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for i := len(tc.cleanup) - 1; i >= 0; i-- {
		tc.cleanup[i]()
	}
	tc.cleanup = nil
}

// AssertEventually waits for condition to be true
func (tc *TestContext) AssertEventually(condition func() bool, msgAndArgs ...interface{}) bool {
	return assert.Eventually(tc.t, condition, tc.config.Timeout, tc.config.Tick, msgAndArgs...)
}

// CallTimeout runs fn in a goroutine and fails the test if it does not return within timeout
func CallTimeout(t testing.TB, timeout time.Duration, fn func()) bool {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		t.Errorf("call did not return within %v", timeout)
		return false
	}
}

package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/jzx17/threadpool/pkg/types"
)

// MockClock drives pool timers from a test. It satisfies types.Clock and
// exposes the underlying quartz mock for traps and manual advances.
type MockClock struct {
	*quartz.Mock
}

var _ types.Clock = (*MockClock)(nil)

// NewMockClock returns a MockClock bound to t
func NewMockClock(t testing.TB) *MockClock {
	return &MockClock{Mock: quartz.NewMock(t)}
}

// quartz methods take trailing tags, so each one is re-declared with the
// exact types.Clock signature

func (c *MockClock) Now() time.Time {
	return c.Mock.Now()
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

func (c *MockClock) NewTimer(d time.Duration) types.Timer {
	return mockTimer{c.Mock.NewTimer(d)}
}

func (c *MockClock) AfterFunc(d time.Duration, f func()) types.Timer {
	return mockTimer{c.Mock.AfterFunc(d, f)}
}

// FireNext moves the clock to its earliest pending timer and waits until
// the timers it fired have run. It reports false when nothing is pending,
// which usually means the goroutine under test has not parked yet.
func (c *MockClock) FireNext(ctx context.Context) bool {
	d, ok := c.Peek()
	if !ok {
		return false
	}
	c.Advance(d).MustWait(ctx)
	return true
}

type mockTimer struct {
	*quartz.Timer
}

func (t mockTimer) C() <-chan time.Time {
	return t.Timer.C
}

func (t mockTimer) Stop() bool {
	return t.Timer.Stop()
}

func (t mockTimer) Reset(d time.Duration) bool {
	return t.Timer.Reset(d)
}

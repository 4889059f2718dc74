package threadpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/threadpool/internal/testutils"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue(500, types.NewRealClock())

	q.mu.Lock()
	defer q.mu.Unlock()

	// enough items to go through compaction more than once
	for round := 0; round < 3; round++ {
		for i := uint64(1); i <= 200; i++ {
			q.pushLocked(&job{id: i})
		}
		for i := uint64(1); i <= 150; i++ {
			require.Equal(t, i, q.popLocked().id)
		}
		for i := uint64(151); i <= 200; i++ {
			require.Equal(t, i, q.popLocked().id)
		}
		assert.Equal(t, 0, q.lenLocked())
	}
}

func TestTaskQueue_Full(t *testing.T) {
	q := newTaskQueue(2, types.NewRealClock())

	q.mu.Lock()
	defer q.mu.Unlock()

	assert.False(t, q.fullLocked())
	q.pushLocked(&job{id: 1})
	assert.False(t, q.fullLocked())
	q.pushLocked(&job{id: 2})
	assert.True(t, q.fullLocked())

	q.popLocked()
	assert.False(t, q.fullLocked())
}

func TestTaskQueue_Drain(t *testing.T) {
	q := newTaskQueue(10, types.NewRealClock())

	q.mu.Lock()
	defer q.mu.Unlock()

	for i := uint64(1); i <= 3; i++ {
		q.pushLocked(&job{id: i})
	}
	q.popLocked()

	drained := q.drainLocked()
	require.Len(t, drained, 2)
	assert.Equal(t, uint64(2), drained[0].id)
	assert.Equal(t, uint64(3), drained[1].id)
	assert.Equal(t, 0, q.lenLocked())
}

func TestWaitList_Timeouts(t *testing.T) {
	t.Run("times out", func(t *testing.T) {
		q := newTaskQueue(1, types.NewRealClock())

		start := time.Now()
		q.mu.Lock()
		q.notEmpty.WaitTimeout(20 * time.Millisecond)
		assert.Equal(t, 0, q.notEmpty.Len())
		q.mu.Unlock()

		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	})

	t.Run("woken by signal", func(t *testing.T) {
		q := newTaskQueue(1, types.NewRealClock())

		go func() {
			time.Sleep(10 * time.Millisecond)
			q.mu.Lock()
			q.pushLocked(&job{id: 1})
			q.notEmpty.Signal()
			q.mu.Unlock()
		}()

		start := time.Now()
		q.mu.Lock()
		for q.lenLocked() == 0 {
			q.notEmpty.WaitTimeout(5 * time.Second)
		}
		q.mu.Unlock()

		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("woken by context", func(t *testing.T) {
		q := newTaskQueue(1, types.NewRealClock())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		start := time.Now()
		q.mu.Lock()
		for ctx.Err() == nil {
			q.notFull.WaitContext(ctx, 5*time.Second)
		}
		q.mu.Unlock()

		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestWaitList_TimeoutWakesOnlyItsWaiter(t *testing.T) {
	mock := testutils.NewMockClock(t)
	q := newTaskQueue(1, mock)
	tc := testutils.NewTestContext(t, nil)

	const sleepers = 5
	var woken atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < sleepers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.mu.Lock()
			q.notEmpty.Wait()
			q.mu.Unlock()
			woken.Add(1)
		}()
	}

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		q.mu.Lock()
		q.notEmpty.WaitTimeout(time.Second)
		q.mu.Unlock()
	}()

	tc.AssertEventually(func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.notEmpty.Len() == sleepers+1
	})

	require.True(t, mock.FireNext(tc.Context()))
	select {
	case <-pollerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed waiter was not woken by its timer")
	}

	q.mu.Lock()
	assert.Equal(t, sleepers, q.notEmpty.Len())
	q.mu.Unlock()
	assert.Equal(t, int32(0), woken.Load())

	q.mu.Lock()
	q.notEmpty.Broadcast()
	q.mu.Unlock()
	wg.Wait()
	assert.Equal(t, int32(sleepers), woken.Load())
}

func TestWaitList_SignalOrder(t *testing.T) {
	q := newTaskQueue(1, types.NewRealClock())
	tc := testutils.NewTestContext(t, nil)

	order := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		go func() {
			q.mu.Lock()
			q.notEmpty.Wait()
			q.mu.Unlock()
			order <- i
		}()
		// park one at a time so arrival order is fixed
		tc.AssertEventually(func() bool {
			q.mu.Lock()
			defer q.mu.Unlock()
			return q.notEmpty.Len() == i
		})
	}

	for want := 1; want <= 3; want++ {
		q.mu.Lock()
		q.notEmpty.Signal()
		q.mu.Unlock()
		assert.Equal(t, want, <-order)
	}
}

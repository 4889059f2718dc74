package threadpool

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
)

// job is the queued unit: a bound computation plus the result it resolves
type job struct {
	id         uint64
	exec       func() (any, error)
	res        *Result
	enqueuedAt time.Time
}

// taskQueue is the bounded FIFO shared by producers and workers.
// mu also guards the pool's worker registry.
type taskQueue struct {
	mu       sync.Mutex
	notFull  *waitList  // producers wait, workers signal after a pop
	notEmpty *waitList  // workers wait, producers signal after a push
	exited   *sync.Cond // shutdown and Close wait, exiting workers signal

	items    []*job
	head     int
	capacity int

	clock types.Clock
}

func newTaskQueue(capacity int, clock types.Clock) *taskQueue {
	q := &taskQueue{
		items:    make([]*job, 0, min(capacity, 64)),
		capacity: capacity,
		clock:    clock,
	}
	q.notFull = newWaitList(&q.mu, clock)
	q.notEmpty = newWaitList(&q.mu, clock)
	q.exited = sync.NewCond(&q.mu)
	return q
}

// lenLocked returns the number of pending jobs, q.mu must be held
func (q *taskQueue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *taskQueue) fullLocked() bool {
	return q.lenLocked() >= q.capacity
}

// pushLocked appends j, q.mu must be held
func (q *taskQueue) pushLocked(j *job) {
	q.items = append(q.items, j)
}

// popLocked removes the oldest job, q.mu must be held and the queue non-empty
func (q *taskQueue) popLocked() *job {
	j := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// compact once the consumed prefix dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return j
}

// drainLocked removes and returns every pending job, q.mu must be held
func (q *taskQueue) drainLocked() []*job {
	out := make([]*job, 0, q.lenLocked())
	for q.lenLocked() > 0 {
		out = append(out, q.popLocked())
	}
	return out
}

// waiter is one goroutine parked on a waitList
type waiter struct {
	cond  *sync.Cond
	woken bool
}

// waitList is a condition variable on a shared mutex whose timed waits wake
// only their own waiter. Waiters are signalled in arrival order and never
// wake spuriously. Every method requires the mutex to be held.
type waitList struct {
	mu      *sync.Mutex
	clock   types.Clock
	waiters []*waiter
}

func newWaitList(mu *sync.Mutex, clock types.Clock) *waitList {
	return &waitList{mu: mu, clock: clock}
}

// Len returns the number of parked waiters
func (l *waitList) Len() int {
	return len(l.waiters)
}

// Signal wakes the longest parked waiter, if any
func (l *waitList) Signal() {
	if len(l.waiters) == 0 {
		return
	}
	w := l.waiters[0]
	l.waiters[0] = nil
	l.waiters = l.waiters[1:]
	l.wakeLocked(w)
}

// Broadcast wakes every parked waiter
func (l *waitList) Broadcast() {
	for _, w := range l.waiters {
		l.wakeLocked(w)
	}
	l.waiters = nil
}

// Wait parks until signalled
func (l *waitList) Wait() {
	l.park(context.Background(), 0)
}

// WaitTimeout parks until signalled or until d has elapsed
func (l *waitList) WaitTimeout(d time.Duration) {
	l.park(context.Background(), d)
}

// WaitContext parks until signalled, until d has elapsed or until ctx is done
func (l *waitList) WaitContext(ctx context.Context, d time.Duration) {
	l.park(ctx, d)
}

func (l *waitList) park(ctx context.Context, d time.Duration) {
	w := &waiter{cond: sync.NewCond(l.mu)}
	l.waiters = append(l.waiters, w)

	// timer and context callbacks wake this waiter only
	expire := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !w.woken {
			l.removeLocked(w)
			l.wakeLocked(w)
		}
	}
	if d > 0 {
		timer := l.clock.AfterFunc(d, expire)
		defer timer.Stop()
	}
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, expire)
		defer stop()
	}

	for !w.woken {
		w.cond.Wait()
	}
}

func (l *waitList) wakeLocked(w *waiter) {
	w.woken = true
	w.cond.Signal()
}

func (l *waitList) removeLocked(w *waiter) {
	for i, x := range l.waiters {
		if x == w {
			l.waiters = slices.Delete(l.waiters, i, i+1)
			return
		}
	}
}

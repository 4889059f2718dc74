package threadpool

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker is one goroutine bound to the pool's dispatch loop. Only the
// worker itself removes its entry from the pool registry.
type Worker struct {
	id    uint64
	pool  *ThreadPool
	state int32 // atomic state

	startedAt time.Time

	// statistics
	totalProcessed int64
	totalFailed    int64
	lastActive     int64 // Unix nanosecond timestamp

	log *logrus.Entry
}

func newWorker(id uint64, pool *ThreadPool) *Worker {
	now := pool.cfg().Clock.Now()
	return &Worker{
		id:         id,
		pool:       pool,
		state:      int32(WorkerStateIdle),
		startedAt:  now,
		lastActive: now.UnixNano(),
		log:        pool.logger().WithField("worker_id", id),
	}
}

// ID returns the Worker ID
func (w *Worker) ID() uint64 {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// start runs the dispatch loop on a new goroutine. The caller keeps no
// handle to it.
func (w *Worker) start() {
	go w.run()
}

func (w *Worker) run() {
	w.log.Debug("worker started")
	for {
		j, ok := w.next()
		if !ok {
			return
		}
		w.processTask(j)
	}
}

// next blocks until a job is available. It returns false after the worker
// has deregistered itself, either because the pool is stopping and the
// queue is drained or because the worker idled out in cached mode.
func (w *Worker) next() (*job, bool) {
	p := w.pool
	q := p.queue
	cfg := p.cfg()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 {
		if p.stopping() {
			p.deregisterLocked(w, "shutdown")
			return nil, false
		}

		if cfg.Mode == types.ModeCached {
			q.notEmpty.WaitTimeout(cfg.PollInterval)
			if q.lenLocked() == 0 && !p.stopping() && w.idleExpired(cfg) &&
				p.current.Load() > p.initial.Load() {
				p.deregisterLocked(w, "idle timeout")
				return nil, false
			}
			continue
		}

		q.notEmpty.Wait()
	}

	j := q.popLocked()
	p.idle.Add(-1)
	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))

	// let other idle workers race for what is left
	if q.lenLocked() > 0 {
		q.notEmpty.Signal()
	}
	q.notFull.Signal()
	cfg.Metrics.setQueueLength(cfg.Name, q.lenLocked())

	return j, true
}

func (w *Worker) idleExpired(cfg *Config) bool {
	last := time.Unix(0, atomic.LoadInt64(&w.lastActive))
	return cfg.Clock.Since(last) >= cfg.IdleTimeout
}

// processTask runs j outside the queue lock and publishes its outcome
func (w *Worker) processTask(j *job) {
	p := w.pool
	cfg := p.cfg()
	clock := cfg.Clock

	startTime := clock.Now()
	if w.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		w.log.WithField("task_id", j.id).Debug("task dequeued")
	}
	cfg.Metrics.observeWait(cfg.Name, startTime.Sub(j.enqueuedAt))

	value, err := w.executeTask(j)
	executionTime := clock.Since(startTime)

	status := "success"
	if err != nil {
		atomic.AddInt64(&w.totalFailed, 1)
		p.failed.Add(1)
		status = "error"
		if types.IsPanic(err) {
			status = "panic"
			w.handleError(err, j)
		}
	} else {
		atomic.AddInt64(&w.totalProcessed, 1)
	}
	p.completed.Add(1)
	cfg.Metrics.recordCompleted(cfg.Name, status, executionTime)

	j.res.resolve(NewAny(value), err)

	atomic.StoreInt32(&w.state, int32(WorkerStateIdle))
	atomic.StoreInt64(&w.lastActive, clock.Now().UnixNano())
	p.idle.Add(1)
	cfg.Metrics.setWorkers(cfg.Name, int(p.current.Load()), int(p.idle.Load()))
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(j *job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			// record panic information
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			if e, ok := r.(error); ok {
				cause = fmt.Errorf("%w: %w", types.ErrTaskPanicked, e)
			} else {
				cause = fmt.Errorf("%w: %v", types.ErrTaskPanicked, r)
			}

			value = nil
			err = types.NewPoolError("execute", j.id, cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id)
		}
	}()

	return j.exec()
}

// handleError reports a panicked task
func (w *Worker) handleError(err error, j *job) {
	entry := w.log.WithField("task_id", j.id).WithError(err)
	var pe *types.PoolError
	if types.AsPoolError(err, &pe) {
		entry = entry.WithField("stack_trace", pe.Context["stack_trace"])
	}
	entry.Error("task panicked")

	if handler := w.pool.cfg().ErrorHandler; handler != nil {
		if handledErr := handler(err); handledErr != nil {
			w.log.WithError(handledErr).Warn("error handler returned an error")
		}
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		StartedAt:      w.startedAt,
		LastActive:     time.Unix(0, atomic.LoadInt64(&w.lastActive)),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             uint64
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	StartedAt      time.Time
	LastActive     time.Time
}

// IsActive checks if Worker is active
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateWorking
}

// IsIdle checks if Worker is idle
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateIdle
}

package threadpool

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
)

// ThreadPool runs submitted tasks on a set of worker goroutines fed by one
// bounded FIFO queue. In fixed mode the worker count never changes after
// Start. In cached mode the pool grows up to MaxWorkers under backlog and
// shrinks back towards the initial count once workers idle out.
type ThreadPool struct {
	// config is replaced wholesale before Start and never mutated after
	config atomic.Pointer[Config]
	queue  *taskQueue

	// workers is guarded by queue.mu
	workers map[uint64]*Worker

	// state management
	state     int32 // types.PoolState
	initial   atomic.Int32
	current   atomic.Int32 // mutated under queue.mu
	idle      atomic.Int32 // decremented under queue.mu
	closeOnce sync.Once
	closeErr  error

	// id sequences
	nextWorkerID atomic.Uint64
	nextTaskID   atomic.Uint64

	// statistics
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	log atomic.Pointer[logrus.Entry]

	// mu serializes configuration changes against Start
	mu sync.Mutex
}

// New creates a thread pool in the Unstarted state
func New(config *Config) (*ThreadPool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	p := &ThreadPool{
		queue:   newTaskQueue(config.MaxQueueCapacity, config.Clock),
		workers: make(map[uint64]*Worker),
		state:   int32(types.StateUnstarted),
	}
	p.setConfig(config)
	return p, nil
}

func (p *ThreadPool) setConfig(cfg *Config) {
	p.config.Store(cfg)
	p.log.Store(cfg.Logger.WithField("pool", cfg.Name))
}

func (p *ThreadPool) cfg() *Config {
	return p.config.Load()
}

func (p *ThreadPool) logger() *logrus.Entry {
	return p.log.Load()
}

// NewDefault creates a thread pool with the default configuration
func NewDefault() *ThreadPool {
	p, _ := New(DefaultConfig())
	return p
}

// SetMode selects fixed or cached sizing. Only allowed before Start.
func (p *ThreadPool) SetMode(mode types.PoolMode) error {
	return p.reconfigure("set_mode", func(c *Config) { c.Mode = mode })
}

// SetQueueCapacity sets the queue bound. Only allowed before Start.
func (p *ThreadPool) SetQueueCapacity(capacity int) error {
	return p.reconfigure("set_queue_capacity", func(c *Config) { c.MaxQueueCapacity = capacity })
}

// SetMaxWorkers sets the cached mode worker ceiling. Only allowed before Start.
func (p *ThreadPool) SetMaxWorkers(maxWorkers int) error {
	return p.reconfigure("set_max_workers", func(c *Config) { c.MaxWorkers = maxWorkers })
}

// SetIdleTimeout sets how long a grown cached worker may idle. Only allowed
// before Start.
func (p *ThreadPool) SetIdleTimeout(timeout time.Duration) error {
	return p.reconfigure("set_idle_timeout", func(c *Config) { c.IdleTimeout = timeout })
}

// Configure sets mode, queue capacity and worker ceiling in one step. Either
// all three are applied or none. Only allowed before Start.
func (p *ThreadPool) Configure(mode types.PoolMode, capacity, maxWorkers int) error {
	return p.reconfigure("configure", func(c *Config) {
		c.Mode = mode
		c.MaxQueueCapacity = capacity
		c.MaxWorkers = maxWorkers
	})
}

func (p *ThreadPool) reconfigure(op string, fn func(c *Config)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state := p.State(); state != types.StateUnstarted {
		p.logger().WithFields(logrus.Fields{
			"operation": op,
			"state":     state.String(),
		}).Warn("configuration change ignored, pool already started")
		return types.NewPoolError(op, 0, types.ErrInvalidState)
	}

	next := *p.cfg()
	fn(&next)
	if err := next.Validate(); err != nil {
		return types.NewPoolError(op, 0, err)
	}
	cfg := next.withDefaults()

	p.queue.mu.Lock()
	p.queue.capacity = cfg.MaxQueueCapacity
	p.queue.clock = cfg.Clock
	p.queue.mu.Unlock()

	p.setConfig(cfg)
	return nil
}

// Start launches initial workers and transitions the pool to Running. Zero
// workers is allowed; tasks then wait in the queue until shutdown rejects
// them, or in cached mode until the first submission grows the pool.
func (p *ThreadPool) Start(initial int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if initial < 0 {
		return types.NewPoolError("start", 0,
			fmt.Errorf("%w: initial worker count must not be negative, got %d", types.ErrInvalidArgument, initial))
	}

	if state := p.State(); state != types.StateUnstarted {
		return types.NewPoolError("start", 0,
			fmt.Errorf("%w: pool is %s", types.ErrInvalidState, state))
	}

	cfg := p.cfg()
	if cfg.Mode == types.ModeCached && initial > cfg.MaxWorkers {
		p.logger().WithFields(logrus.Fields{
			"initial":     initial,
			"max_workers": cfg.MaxWorkers,
		}).Warn("initial worker count exceeds max workers, raising max workers")
		raised := *cfg
		raised.MaxWorkers = initial
		cfg = &raised
		p.setConfig(cfg)
	}
	p.initial.Store(int32(initial))

	q := p.queue
	q.mu.Lock()
	// a concurrent Shutdown may have moved an unstarted pool to Stopped
	if !atomic.CompareAndSwapInt32(&p.state, int32(types.StateUnstarted), int32(types.StateRunning)) {
		q.mu.Unlock()
		return types.NewPoolError("start", 0,
			fmt.Errorf("%w: pool is %s", types.ErrInvalidState, p.State()))
	}
	for i := 0; i < initial; i++ {
		p.spawnLocked()
	}
	q.mu.Unlock()

	p.logger().WithFields(logrus.Fields{
		"mode":           cfg.Mode.String(),
		"workers":        initial,
		"max_workers":    cfg.MaxWorkers,
		"queue_capacity": cfg.MaxQueueCapacity,
	}).Info("thread pool started")
	return nil
}

// StartDefault starts the pool with one worker per usable CPU
func (p *ThreadPool) StartDefault() error {
	return p.Start(runtime.GOMAXPROCS(0))
}

// spawnLocked registers and starts one worker, queue.mu must be held
func (p *ThreadPool) spawnLocked() *Worker {
	w := newWorker(p.nextWorkerID.Add(1), p)
	p.workers[w.id] = w
	p.current.Add(1)
	p.idle.Add(1)

	cfg := p.cfg()
	cfg.Metrics.recordWorkerCreated(cfg.Name)
	cfg.Metrics.setWorkers(cfg.Name, int(p.current.Load()), int(p.idle.Load()))

	w.start()
	return w
}

// deregisterLocked removes an idle worker that is about to exit,
// queue.mu must be held
func (p *ThreadPool) deregisterLocked(w *Worker, reason string) {
	delete(p.workers, w.id)
	p.current.Add(-1)
	p.idle.Add(-1)
	atomic.StoreInt32(&w.state, int32(WorkerStateStopped))
	p.queue.exited.Broadcast()

	cfg := p.cfg()
	cfg.Metrics.recordWorkerExited(cfg.Name, reason)
	cfg.Metrics.setWorkers(cfg.Name, int(p.current.Load()), int(p.idle.Load()))
	w.log.WithFields(logrus.Fields{
		"reason":    reason,
		"processed": atomic.LoadInt64(&w.totalProcessed),
	}).Debug("worker exited")
}

// growLocked adds one worker in cached mode when pending work outnumbers
// idle workers, queue.mu must be held
func (p *ThreadPool) growLocked() {
	cfg := p.cfg()
	if cfg.Mode != types.ModeCached {
		return
	}
	pending := p.queue.lenLocked()
	if pending <= int(p.idle.Load()) || int(p.current.Load()) >= cfg.MaxWorkers {
		return
	}
	w := p.spawnLocked()
	w.log.WithFields(logrus.Fields{
		"pending": pending,
		"workers": p.current.Load(),
	}).Debug("created worker for pending tasks")
}

// Shutdown stops accepting tasks, lets the workers drain the queue and waits
// for all of them to exit. Tasks still queued when no worker is left to run
// them are rejected with ErrPoolStopped. Calling Shutdown on an Unstarted
// pool moves it straight to Stopped.
func (p *ThreadPool) Shutdown() error {
	if !atomic.CompareAndSwapInt32(&p.state, int32(types.StateRunning), int32(types.StateStopping)) {
		if atomic.CompareAndSwapInt32(&p.state, int32(types.StateUnstarted), int32(types.StateStopped)) {
			p.logger().Info("thread pool stopped before start")
			return nil
		}
		return types.NewPoolError("shutdown", 0,
			fmt.Errorf("%w: pool is %s", types.ErrInvalidState, p.State()))
	}

	p.logger().Info("thread pool shutting down")

	q := p.queue
	q.mu.Lock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	for len(p.workers) > 0 {
		q.exited.Wait()
	}
	leftover := q.drainLocked()
	atomic.StoreInt32(&p.state, int32(types.StateStopped))
	q.exited.Broadcast()
	cfg := p.cfg()
	cfg.Metrics.setQueueLength(cfg.Name, 0)
	q.mu.Unlock()

	for _, j := range leftover {
		j.res.reject(types.NewPoolError("shutdown", j.id, types.ErrPoolStopped))
		p.rejected.Add(1)
		cfg.Metrics.recordRejected(cfg.Name, rejectReason(types.ErrPoolStopped))
	}
	if len(leftover) > 0 {
		p.logger().WithField("tasks", len(leftover)).Warn("rejected queued tasks with no worker left to run them")
	}

	p.logger().WithFields(logrus.Fields{
		"completed": p.completed.Load(),
		"failed":    p.failed.Load(),
		"rejected":  p.rejected.Load(),
	}).Info("thread pool stopped")
	return nil
}

// Close shuts the pool down once and returns after it has reached Stopped,
// also when another goroutine's Shutdown is still in progress. Later calls
// return the first result.
func (p *ThreadPool) Close() error {
	p.closeOnce.Do(func() {
		err := p.Shutdown()
		if err == nil {
			return
		}
		if !errors.Is(err, types.ErrInvalidState) {
			p.closeErr = err
			return
		}
		p.awaitStopped()
	})
	return p.closeErr
}

// awaitStopped blocks until a Shutdown running elsewhere has finished
func (p *ThreadPool) awaitStopped() {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	for p.State() != types.StateStopped {
		q.exited.Wait()
	}
}

// State returns the lifecycle state
func (p *ThreadPool) State() types.PoolState {
	return types.PoolState(atomic.LoadInt32(&p.state))
}

// IsRunning reports whether the pool accepts tasks
func (p *ThreadPool) IsRunning() bool {
	return p.State() == types.StateRunning
}

func (p *ThreadPool) stopping() bool {
	return p.State() >= types.StateStopping
}

// Mode returns the configured sizing mode
func (p *ThreadPool) Mode() types.PoolMode {
	return p.cfg().Mode
}

// Name returns the pool name used in logs and metrics
func (p *ThreadPool) Name() string {
	return p.cfg().Name
}

// Workers returns the current worker count
func (p *ThreadPool) Workers() int {
	return int(p.current.Load())
}

// IdleWorkers returns the number of workers not running a task
func (p *ThreadPool) IdleWorkers() int {
	return int(p.idle.Load())
}

// QueueLength returns the number of pending tasks
func (p *ThreadPool) QueueLength() int {
	p.queue.mu.Lock()
	defer p.queue.mu.Unlock()
	return p.queue.lenLocked()
}

// Stats returns a snapshot of the pool counters
func (p *ThreadPool) Stats() types.PoolStats {
	cfg := p.cfg()

	p.queue.mu.Lock()
	queued := p.queue.lenLocked()
	p.queue.mu.Unlock()

	return types.PoolStats{
		Name:           cfg.Name,
		Mode:           cfg.Mode,
		State:          p.State(),
		InitialWorkers: int(p.initial.Load()),
		CurrentWorkers: int(p.current.Load()),
		IdleWorkers:    int(p.idle.Load()),
		MaxWorkers:     cfg.MaxWorkers,
		QueueLength:    queued,
		QueueCapacity:  cfg.MaxQueueCapacity,
		TotalSubmitted: p.submitted.Load(),
		TotalRejected:  p.rejected.Load(),
		TotalCompleted: p.completed.Load(),
		TotalFailed:    p.failed.Load(),
		IdleTimeout:    cfg.IdleTimeout,
	}
}

// WorkerStats returns per worker statistics ordered by worker id
func (p *ThreadPool) WorkerStats() []WorkerStats {
	p.queue.mu.Lock()
	stats := make([]WorkerStats, 0, len(p.workers))
	for _, w := range p.workers {
		stats = append(stats, w.Stats())
	}
	p.queue.mu.Unlock()

	slices.SortFunc(stats, func(a, b WorkerStats) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return stats
}

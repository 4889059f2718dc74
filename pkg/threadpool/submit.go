package threadpool

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var errorType = reflect.TypeFor[error]()

// Submit enqueues task and returns the handle its value will be posted to.
// When the queue stays full for the whole submit timeout, or the pool is not
// running, the handle is already resolved, invalid, and Err reports why.
func (p *ThreadPool) Submit(task types.Task) *Result {
	return p.SubmitContext(context.Background(), task)
}

// SubmitContext is like Submit but also stops waiting for queue space when
// ctx is done
func (p *ThreadPool) SubmitContext(ctx context.Context, task types.Task) *Result {
	if task == nil {
		return p.rejectSubmit(p.nextTaskID.Add(1),
			fmt.Errorf("%w: task cannot be nil", types.ErrInvalidArgument))
	}
	return p.submit(ctx, func() (any, error) {
		return task.Run(), nil
	})
}

// SubmitCall binds args to fn now and runs the call on a worker later. fn
// may return nothing, one value, an error, or a value followed by an error.
// Arguments are checked against fn's signature before anything is queued.
func (p *ThreadPool) SubmitCall(fn any, args ...any) *Result {
	call, err := bindCall(fn, args)
	if err != nil {
		return p.rejectSubmit(p.nextTaskID.Add(1), err)
	}
	return p.submit(context.Background(), call)
}

// SubmitFunc submits fn and returns a typed future for its value
func SubmitFunc[R any](p *ThreadPool, fn func() R) *Future[R] {
	if fn == nil {
		return newFuture[R](p.rejectSubmit(p.nextTaskID.Add(1),
			fmt.Errorf("%w: function cannot be nil", types.ErrInvalidArgument)))
	}
	return newFuture[R](p.submit(context.Background(), func() (any, error) {
		return fn(), nil
	}))
}

// SubmitFuncErr submits fn and returns a typed future for its value. An
// error returned by fn is reported by the future unchanged.
func SubmitFuncErr[R any](p *ThreadPool, fn func() (R, error)) *Future[R] {
	if fn == nil {
		return newFuture[R](p.rejectSubmit(p.nextTaskID.Add(1),
			fmt.Errorf("%w: function cannot be nil", types.ErrInvalidArgument)))
	}
	return newFuture[R](p.submit(context.Background(), func() (any, error) {
		return fn()
	}))
}

// WaitAll blocks until every result is available and returns the first
// error any of them reports, or ctx's error if it ends first
func WaitAll(ctx context.Context, results ...*Result) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range results {
		if r == nil {
			continue
		}
		g.Go(func() error {
			_, err := r.GetContext(ctx)
			return err
		})
	}
	return g.Wait()
}

func (p *ThreadPool) submit(ctx context.Context, exec func() (any, error)) *Result {
	cfg := p.cfg()
	id := p.nextTaskID.Add(1)

	switch p.State() {
	case types.StateRunning:
	case types.StateUnstarted:
		return p.rejectSubmit(id, types.ErrPoolNotRunning)
	default:
		return p.rejectSubmit(id, types.ErrPoolStopped)
	}

	if cfg.RateLimiter != nil {
		if err := p.waitRateLimit(ctx, cfg); err != nil {
			return p.rejectSubmit(id, fmt.Errorf("%w: %w", types.ErrRateLimited, err))
		}
	}

	res := newResult(id, cfg.Clock)
	j := &job{
		id:         id,
		exec:       exec,
		res:        res,
		enqueuedAt: cfg.Clock.Now(),
	}
	if err := p.enqueue(ctx, cfg, j); err != nil {
		return p.rejectSubmit(id, err)
	}

	p.submitted.Add(1)
	cfg.Metrics.recordSubmitted(cfg.Name)
	return res
}

func (p *ThreadPool) waitRateLimit(ctx context.Context, cfg *Config) error {
	if cfg.SubmitTimeout <= 0 {
		if !cfg.RateLimiter.Allow() {
			return errors.New("no token available")
		}
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.SubmitTimeout)
	defer cancel()
	return cfg.RateLimiter.Wait(ctx)
}

// enqueue waits for queue space until the submit timeout elapses, then
// pushes j and wakes one worker. In cached mode it may add a worker.
func (p *ThreadPool) enqueue(ctx context.Context, cfg *Config, j *job) error {
	q := p.queue
	start := cfg.Clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		// re-checked under the lock so no job lands after shutdown drained
		if p.State() != types.StateRunning {
			return types.ErrPoolStopped
		}
		if !q.fullLocked() {
			break
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", types.ErrQueueFull, err)
		}
		remaining := cfg.SubmitTimeout - cfg.Clock.Since(start)
		if remaining <= 0 {
			return types.ErrQueueFull
		}
		q.notFull.WaitContext(ctx, remaining)
	}

	q.pushLocked(j)
	q.notEmpty.Signal()
	cfg.Metrics.setQueueLength(cfg.Name, q.lenLocked())
	p.growLocked()
	return nil
}

// rejectSubmit returns an already resolved, invalid result carrying cause
func (p *ThreadPool) rejectSubmit(taskID uint64, cause error) *Result {
	cfg := p.cfg()
	err := types.NewPoolError("submit", taskID, cause)
	reason := rejectReason(cause)

	p.rejected.Add(1)
	cfg.Metrics.recordRejected(cfg.Name, reason)

	entry := p.logger().WithFields(logrus.Fields{
		"task_id": taskID,
		"reason":  reason,
	})
	switch reason {
	case "queue_full":
		entry.Warn("task queue is full, failed to submit task")
	case "rate_limited":
		entry.Warn("submission rate limited, failed to submit task")
	default:
		entry.WithError(cause).Debug("task rejected")
	}

	return newInvalidResult(taskID, cfg.Clock, err)
}

// rejectReason maps a rejection cause to a metrics label
func rejectReason(cause error) string {
	switch {
	case errors.Is(cause, types.ErrQueueFull):
		return "queue_full"
	case errors.Is(cause, types.ErrRateLimited):
		return "rate_limited"
	case errors.Is(cause, types.ErrPoolNotRunning):
		return "not_running"
	case errors.Is(cause, types.ErrPoolStopped):
		return "stopped"
	case errors.Is(cause, types.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "other"
	}
}

// bindCall validates args against fn's signature and returns a closure
// that performs the call
func bindCall(fn any, args []any) (func() (any, error), error) {
	fv := reflect.ValueOf(fn)
	if fn == nil || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("%w: expected a function, got %T", types.ErrInvalidArgument, fn)
	}
	ft := fv.Type()

	numIn := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%w: %s needs at least %d arguments, got %d",
				types.ErrInvalidArgument, ft, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%w: %s needs %d arguments, got %d",
			types.ErrInvalidArgument, ft, numIn, len(args))
	}

	returnsErr := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType
	switch {
	case ft.NumOut() > 2:
		return nil, fmt.Errorf("%w: %s returns more than two values", types.ErrInvalidArgument, ft)
	case ft.NumOut() == 2 && !returnsErr:
		return nil, fmt.Errorf("%w: %s must return (value, error)", types.ErrInvalidArgument, ft)
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := paramType(ft, i)
		v, err := bindArg(arg, want)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", types.ErrInvalidArgument, i, err)
		}
		in[i] = v
	}

	return func() (any, error) {
		out := fv.Call(in)
		var err error
		if returnsErr {
			if e := out[len(out)-1]; !e.IsNil() {
				err = e.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		if len(out) == 0 {
			return nil, err
		}
		return out[0].Interface(), err
	}, nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// bindArg converts arg to want. Besides plain assignability only numeric
// conversions are allowed, so an untyped constant like 1 can feed an int64.
func bindArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil is not a valid %s", want)
		}
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), want)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

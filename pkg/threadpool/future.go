package threadpool

import (
	"context"
	"time"
)

// Future is a typed view over a Result
type Future[T any] struct {
	res *Result
}

func newFuture[T any](res *Result) *Future[T] {
	return &Future[T]{res: res}
}

// Get blocks until the task completes. A rejected submission returns the
// zero value together with the rejection reason.
func (f *Future[T]) Get() (T, error) {
	v := f.res.Get()
	if err := f.res.Err(); err != nil {
		var zero T
		return zero, err
	}
	return castValue[T](v)
}

// GetContext is like Get but gives up when ctx is done
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	var zero T
	v, err := f.res.GetContext(ctx)
	if err != nil {
		return zero, err
	}
	return castValue[T](v)
}

// GetTimeout is like Get but gives up after timeout. The boolean reports
// whether the result was available.
func (f *Future[T]) GetTimeout(timeout time.Duration) (T, bool, error) {
	var zero T
	v, ok, err := f.res.GetTimeout(timeout)
	if !ok {
		return zero, false, nil
	}
	if err != nil {
		return zero, true, err
	}
	out, err := castValue[T](v)
	return out, true, err
}

// castValue treats an empty value as the zero T: a func returning a nil
// pointer or interface stores nothing.
func castValue[T any](v Any) (T, error) {
	if v.IsEmpty() {
		var zero T
		return zero, nil
	}
	return Cast[T](v)
}

// Result returns the untyped result channel
func (f *Future[T]) Result() *Result {
	return f.res
}

// IsValid reports whether the task was accepted
func (f *Future[T]) IsValid() bool {
	return f.res.IsValid()
}

// Done returns a channel closed once the value is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.res.Done()
}

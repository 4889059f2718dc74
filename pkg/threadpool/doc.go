/*
Package threadpool provides a bounded worker pool that hands each submitted task's result back to its submitter.

# Overview

A ThreadPool owns one bounded FIFO queue and a registry of worker goroutines:
- Fixed mode: the worker count set by Start never changes
- Cached mode: one worker is added per submission that finds more pending tasks than idle workers, up to MaxWorkers
- Cached workers above the initial count exit after IdleTimeout without work
- Submit waits at most SubmitTimeout for queue space, then returns an invalid handle
- Shutdown lets workers drain the queue and returns once every worker has exited

# Core Components

## ThreadPool

The coordinator. It holds the configuration, the worker registry and the
lifecycle state (Unstarted, Running, Stopping, Stopped). Configuration
setters only work before Start.

## Result

The one-shot hand-off between the worker running a task and its submitter.
Get blocks until the value is posted. A rejected submission yields a Result
that is already resolved, reports IsValid false and carries the reason in Err.

## Any

A type-erased value. Cast extracts the stored value as a requested type and
fails with types.ErrTypeMismatch when the types differ; it never converts.

## Future

A typed view over a Result, returned by SubmitFunc and SubmitFuncErr.

# Usage Examples

Result-object style:

	pool, err := threadpool.New(threadpool.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := pool.Start(2); err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	res := pool.Submit(types.TaskFunc(func() any { return 1 + 2 }))
	sum, err := threadpool.Cast[int](res.Get())

Future style:

	f := threadpool.SubmitFunc(pool, func() int { return 5050 })
	v, err := f.Get()

Bound arguments:

	res := pool.SubmitCall(func(a, b int) int { return a + b }, 1, 2)

# Error Handling

Task panics are recovered by the worker. The task's Result receives a
*types.PoolError wrapping types.ErrTaskPanicked with the stack trace in its
context, Config.ErrorHandler is called, and the worker keeps running.
*/
package threadpool

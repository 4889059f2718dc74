package threadpool

import (
	"fmt"
	"time"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxQueueCapacity is the default bound on pending tasks
	DefaultMaxQueueCapacity = 1024
	// DefaultMaxWorkers is the default CACHED growth threshold
	DefaultMaxWorkers = 10
	// DefaultIdleTimeout is how long a grown CACHED worker may stay idle
	DefaultIdleTimeout = 10 * time.Second
	// DefaultSubmitTimeout bounds the wait for queue space in Submit
	DefaultSubmitTimeout = time.Second
	// DefaultPollInterval is the CACHED idle-check granularity
	DefaultPollInterval = time.Second
)

// Config defines configuration for a thread pool
type Config struct {
	// Name labels log entries and metrics
	Name string

	// Mode selects fixed or cached worker sizing
	Mode types.PoolMode

	// MaxQueueCapacity is the maximum number of pending tasks
	MaxQueueCapacity int

	// MaxWorkers is the worker count ceiling in cached mode
	MaxWorkers int

	// IdleTimeout is how long a worker above the initial count may stay
	// idle in cached mode before it exits
	IdleTimeout time.Duration

	// SubmitTimeout bounds how long Submit waits for queue space
	SubmitTimeout time.Duration

	// PollInterval is how often idle cached workers wake to check IdleTimeout
	PollInterval time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives pool lifecycle and rejection logs
	Logger logrus.FieldLogger

	// ErrorHandler is called with the error of every task that panicked
	ErrorHandler types.ErrorHandler

	// Metrics collects Prometheus metrics (optional)
	Metrics *Metrics

	// RateLimiter throttles submissions (optional)
	RateLimiter *rate.Limiter
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:             "threadpool",
		Mode:             types.ModeFixed,
		MaxQueueCapacity: DefaultMaxQueueCapacity,
		MaxWorkers:       DefaultMaxWorkers,
		IdleTimeout:      DefaultIdleTimeout,
		SubmitTimeout:    DefaultSubmitTimeout,
		PollInterval:     DefaultPollInterval,
		Clock:            types.NewRealClock(),
		Logger:           logrus.StandardLogger(),
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Mode != types.ModeFixed && c.Mode != types.ModeCached {
		return fmt.Errorf("%w: unknown mode %d", types.ErrInvalidArgument, c.Mode)
	}
	if c.MaxQueueCapacity <= 0 {
		return fmt.Errorf("%w: queue capacity must be positive, got %d",
			types.ErrInvalidArgument, c.MaxQueueCapacity)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("%w: max workers must be positive, got %d",
			types.ErrInvalidArgument, c.MaxWorkers)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: idle timeout must be positive, got %v",
			types.ErrInvalidArgument, c.IdleTimeout)
	}
	if c.SubmitTimeout < 0 {
		return fmt.Errorf("%w: submit timeout must not be negative, got %v",
			types.ErrInvalidArgument, c.SubmitTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v",
			types.ErrInvalidArgument, c.PollInterval)
	}
	return nil
}

// withDefaults fills unset optional fields
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Name == "" {
		out.Name = "threadpool"
	}
	if out.Clock == nil {
		out.Clock = types.NewRealClock()
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	return &out
}

// Command threadpool-demo drives a thread pool with concurrent producers and
// reports what happened
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jzx17/threadpool/internal/config"
	"github.com/jzx17/threadpool/internal/report"
	"github.com/jzx17/threadpool/pkg/threadpool"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath  string
	mode        string
	workers     int
	tasks       int
	producers   int
	work        time.Duration
	panicEvery  int
	metricsAddr string
	ciMode      bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "pool configuration file (.yaml, .yml or .json)")
	flag.StringVar(&o.mode, "mode", "", "pool mode: fixed or cached (overrides the config file)")
	flag.IntVar(&o.workers, "workers", -1, "initial workers (default: config file or GOMAXPROCS)")
	flag.IntVar(&o.tasks, "tasks", 1000, "tasks per producer")
	flag.IntVar(&o.producers, "producers", 4, "concurrent producers")
	flag.DurationVar(&o.work, "work", 2*time.Millisecond, "upper bound of simulated work per task")
	flag.IntVar(&o.panicEvery, "panic-every", 0, "make every n-th task panic (0 disables)")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	flag.BoolVar(&o.ciMode, "ci", false, "plain output without progress bar")
	flag.Parse()
	return o
}

func main() {
	if err := run(parseFlags()); err != nil {
		report.Red.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	// Respect container CPU quotas before sizing the pool
	undo, err := maxprocs.Set()
	defer undo()
	if err != nil {
		logrus.WithError(err).Warn("failed to set GOMAXPROCS")
	}

	fc := &config.FileConfig{}
	if o.configPath != "" {
		if fc, err = config.LoadFile(o.configPath); err != nil {
			return err
		}
	}
	if o.mode != "" {
		fc.Pool.Mode = o.mode
	}
	if err := fc.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg, err := fc.ToConfig()
	if err != nil {
		return err
	}
	if cfg.Name == threadpool.DefaultConfig().Name {
		cfg.Name = "demo"
	}

	if o.metricsAddr != "" {
		cfg.Metrics = threadpool.NewMetrics(prometheus.DefaultRegisterer)
		go serveMetrics(o.metricsAddr, cfg.Logger)
	}

	initial := fc.Pool.InitialWorkers
	if o.workers >= 0 {
		initial = o.workers
	} else if initial == 0 {
		initial = runtime.GOMAXPROCS(0)
	}

	pool, err := threadpool.New(cfg)
	if err != nil {
		return err
	}
	if err := pool.Start(initial); err != nil {
		return err
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report.Section(os.Stdout, "Running producers",
		fmt.Sprintf("  %d producers x %d tasks, %s mode, %d initial workers",
			o.producers, o.tasks, cfg.Mode, initial))

	total := o.producers * o.tasks
	var bar *progressbar.ProgressBar
	if !o.ciMode {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Completing tasks"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionEnableColorCodes(true),
		)
	}

	var taskSeq, accepted, rejected, failed atomic.Int64
	var consumers sync.WaitGroup
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < o.producers; p++ {
		g.Go(func() error {
			for i := 0; i < o.tasks; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				n := taskSeq.Add(1)
				res := pool.SubmitContext(gctx, types.TaskFunc(func() any {
					if o.panicEvery > 0 && n%int64(o.panicEvery) == 0 {
						panic(fmt.Sprintf("task %d gave up", n))
					}
					if o.work > 0 {
						time.Sleep(rand.N(o.work))
					}
					return n * n
				}))
				if !res.IsValid() {
					rejected.Add(1)
					if bar != nil {
						_ = bar.Add(1)
					}
					continue
				}
				accepted.Add(1)

				// Consume results as they resolve so the bar tracks completion.
				// gctx ends when the producers return, so wait on ctx instead.
				consumers.Add(1)
				go func() {
					defer consumers.Done()
					if _, err := res.GetContext(ctx); err != nil && ctx.Err() == nil {
						failed.Add(1)
					}
					if bar != nil {
						_ = bar.Add(1)
					}
				}()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Shutdown drains the queue, so every accepted task has run afterwards
	if err := pool.Shutdown(); err != nil {
		return err
	}
	consumers.Wait()
	elapsed := time.Since(start)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	report.Section(os.Stdout, "Results")
	report.Check(os.Stdout, rejected.Load() == 0, "%d accepted, %d rejected", accepted.Load(), rejected.Load())
	report.Check(os.Stdout, failed.Load() == 0, "%d tasks failed", failed.Load())
	_, _ = report.Cyan.Printf("  %.0f tasks/sec over %v\n",
		float64(accepted.Load())/elapsed.Seconds(), elapsed.Round(time.Millisecond))

	report.Section(os.Stdout, "Pool statistics")
	return report.PoolStats(os.Stdout, pool.Stats())
}

func serveMetrics(addr string, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.WithField("addr", addr).Info("serving metrics")
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("metrics server stopped")
	}
}

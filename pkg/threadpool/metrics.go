package threadpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for thread pools. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	TaskWait       *prometheus.HistogramVec
	QueueSize      *prometheus.GaugeVec
	WorkerCount    *prometheus.GaugeVec
	IdleWorkers    *prometheus.GaugeVec
	WorkersCreated *prometheus.CounterVec
	WorkersExited  *prometheus.CounterVec
}

// NewMetrics creates the thread pool metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_tasks_submitted_total",
				Help: "Total number of tasks accepted into the queue",
			},
			[]string{"pool_name"},
		),
		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_tasks_completed_total",
				Help: "Total number of tasks executed by the thread pool",
			},
			[]string{"pool_name", "status"},
		),
		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_tasks_rejected_total",
				Help: "Total number of submissions that returned an invalid result",
			},
			[]string{"pool_name", "reason"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadpool_task_duration_seconds",
				Help:    "Duration of task execution in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),
		TaskWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadpool_task_wait_seconds",
				Help:    "Time tasks spent in the queue before a worker took them",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),
		QueueSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadpool_queue_size",
				Help: "Current number of tasks in the queue",
			},
			[]string{"pool_name"},
		),
		WorkerCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadpool_worker_count",
				Help: "Total number of workers in the pool",
			},
			[]string{"pool_name"},
		),
		IdleWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "threadpool_idle_workers",
				Help: "Current number of workers waiting for a task",
			},
			[]string{"pool_name"},
		),
		WorkersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_workers_created_total",
				Help: "Total number of workers started",
			},
			[]string{"pool_name"},
		),
		WorkersExited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadpool_workers_exited_total",
				Help: "Total number of workers that exited",
			},
			[]string{"pool_name", "reason"},
		),
	}
}

func (m *Metrics) recordSubmitted(poolName string) {
	if m == nil {
		return
	}
	m.TasksSubmitted.WithLabelValues(poolName).Inc()
}

func (m *Metrics) recordRejected(poolName, reason string) {
	if m == nil {
		return
	}
	m.TasksRejected.WithLabelValues(poolName, reason).Inc()
}

func (m *Metrics) recordCompleted(poolName, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksCompleted.WithLabelValues(poolName, status).Inc()
	m.TaskDuration.WithLabelValues(poolName).Observe(d.Seconds())
}

func (m *Metrics) observeWait(poolName string, d time.Duration) {
	if m == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.TaskWait.WithLabelValues(poolName).Observe(d.Seconds())
}

func (m *Metrics) setQueueLength(poolName string, n int) {
	if m == nil {
		return
	}
	m.QueueSize.WithLabelValues(poolName).Set(float64(n))
}

func (m *Metrics) setWorkers(poolName string, current, idle int) {
	if m == nil {
		return
	}
	m.WorkerCount.WithLabelValues(poolName).Set(float64(current))
	m.IdleWorkers.WithLabelValues(poolName).Set(float64(idle))
}

func (m *Metrics) recordWorkerCreated(poolName string) {
	if m == nil {
		return
	}
	m.WorkersCreated.WithLabelValues(poolName).Inc()
}

func (m *Metrics) recordWorkerExited(poolName, reason string) {
	if m == nil {
		return
	}
	m.WorkersExited.WithLabelValues(poolName, reason).Inc()
}

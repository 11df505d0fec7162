package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 10

// ErrNilProcessor indicates a nil processor function was provided
var ErrNilProcessor = errors.New("processor function cannot be nil")

// Result is the outcome of one task.
type Result[T any] struct {
	Task    T
	Err     error
	Elapsed time.Duration
}

// Pool runs tasks on a fixed number of goroutines pulling from one queue.
// Tasks run to completion; nothing is preempted or cancelled.
type Pool[T any] struct {
	workers   int
	processor func(context.Context, T) error
	metrics   *poolMetrics

	// Statistics (atomic)
	submitted int64
	processed int64
	failed    int64
}

type poolMetrics struct {
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithMetrics registers the pool counters with reg under prefix.
func WithMetrics[T any](reg prometheus.Registerer, prefix string) Option[T] {
	return func(p *Pool[T]) {
		m := &poolMetrics{
			submitted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: prefix + "_submitted_total",
				Help: "Total tasks submitted",
			}),
			processed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: prefix + "_processed_total",
				Help: "Total tasks processed",
			}),
			failed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: prefix + "_failed_total",
				Help: "Total tasks that returned an error",
			}),
			processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    prefix + "_processing_duration_seconds",
				Help:    "Time spent processing tasks",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			}, []string{"status"}),
		}
		reg.MustRegister(m.submitted, m.processed, m.failed, m.processingTime)
		p.metrics = m
	}
}

// NewPool creates a pool of workers goroutines (DefaultWorkers when <= 0).
func NewPool[T any](workers int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}
	pool := &Pool[T]{workers: workers, processor: processor}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Run queues every task and returns a channel carrying one Result per task.
// The channel is closed after the last task finished.
func (p *Pool[T]) Run(ctx context.Context, tasks []T) <-chan Result[T] {
	queue := make(chan T, len(tasks))
	results := make(chan Result[T], len(tasks))
	for _, t := range tasks {
		queue <- t
		atomic.AddInt64(&p.submitted, 1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
		}
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, max(len(tasks), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- p.process(ctx, task)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (p *Pool[T]) process(ctx context.Context, task T) Result[T] {
	start := time.Now()
	err := p.processor(ctx, task)
	elapsed := time.Since(start)

	atomic.AddInt64(&p.processed, 1)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
	}
	if p.metrics != nil {
		p.metrics.processed.Inc()
		status := "success"
		if err != nil {
			p.metrics.failed.Inc()
			status = "error"
		}
		p.metrics.processingTime.WithLabelValues(status).Observe(elapsed.Seconds())
	}
	return Result[T]{Task: task, Err: err, Elapsed: elapsed}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers   int   `json:"workers"`
	Submitted int64 `json:"submitted"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Submitted: atomic.LoadInt64(&p.submitted),
		Processed: atomic.LoadInt64(&p.processed),
		Failed:    atomic.LoadInt64(&p.failed),
	}
}

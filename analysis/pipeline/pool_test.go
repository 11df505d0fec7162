package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesEveryTask(t *testing.T) {
	// GIVEN 25 tasks on a 4-worker pool
	var inFlight, peak int64
	pool := NewPool(4, func(_ context.Context, n int) error {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		if n%5 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	tasks := make([]int, 25)
	for i := range tasks {
		tasks[i] = i
	}

	// WHEN run and drained
	seen := map[int]bool{}
	failures := 0
	for res := range pool.Run(context.Background(), tasks) {
		seen[res.Task] = true
		if res.Err != nil {
			failures++
		}
	}

	// THEN each task ran once and concurrency never exceeded the pool size
	assert.Len(t, seen, 25)
	assert.Equal(t, 5, failures)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
	stats := pool.Stats()
	assert.Equal(t, int64(25), stats.Submitted)
	assert.Equal(t, int64(25), stats.Processed)
	assert.Equal(t, int64(5), stats.Failed)
}

func TestPool_NoTasks_ClosesResults(t *testing.T) {
	pool := NewPool(3, func(context.Context, string) error { return nil })

	var n int
	for range pool.Run(context.Background(), nil) {
		n++
	}

	assert.Zero(t, n)
}

func TestPool_DefaultWorkers(t *testing.T) {
	pool := NewPool(0, func(context.Context, int) error { return nil })
	assert.Equal(t, DefaultWorkers, pool.Stats().Workers)
}

func TestPool_NilProcessorPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilProcessor, func() {
		NewPool[int](1, nil)
	})
}

func TestPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := NewPool(2, func(_ context.Context, n int) error {
		if n == 1 {
			return errors.New("fail")
		}
		return nil
	}, WithMetrics[int](reg, "test_pool"))

	for range pool.Run(context.Background(), []int{0, 1, 2}) {
	}

	require.NotNil(t, pool.metrics)
	assert.Equal(t, 3.0, promtest.ToFloat64(pool.metrics.submitted))
	assert.Equal(t, 3.0, promtest.ToFloat64(pool.metrics.processed))
	assert.Equal(t, 1.0, promtest.ToFloat64(pool.metrics.failed))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "prerequisite", StatePrerequisite.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}

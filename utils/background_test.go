package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(4)

	var count int64
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	pool.Shutdown()

	assert.Equal(t, int64(100), atomic.LoadInt64(&count))
}

func TestWorkerPoolShutdownDrainsQueue(t *testing.T) {
	// One worker, many queued jobs: Shutdown must wait for the backlog.
	pool := NewWorkerPool(1)

	var count int64
	for i := 0; i < 50; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	pool.Shutdown()

	assert.Equal(t, int64(50), atomic.LoadInt64(&count))
}

func TestWorkerPoolDropsJobsAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Shutdown()

	var ran int64
	// Must not panic on the closed channel.
	pool.Submit(func() {
		atomic.AddInt64(&ran, 1)
	})

	assert.Equal(t, int64(0), atomic.LoadInt64(&ran))
}

func TestWorkerPoolRecoversFromPanic(t *testing.T) {
	pool := NewWorkerPool(1)

	var count int64
	pool.Submit(func() {
		panic("boom")
	})
	pool.Submit(func() {
		atomic.AddInt64(&count, 1)
	})
	pool.Shutdown()

	assert.Equal(t, int64(1), atomic.LoadInt64(&count))
}

func TestWorkerPoolDoubleShutdown(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Shutdown()
	assert.NotPanics(t, func() {
		pool.Shutdown()
	})
}

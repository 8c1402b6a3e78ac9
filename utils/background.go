package utils

import (
	"log"
	"sync"
)

// WorkerPool runs fire-and-forget jobs on a fixed number of goroutines.
// Callers get no handle and no error channel; failures are only visible in
// the server logs. Shutdown drains queued and in-flight jobs so copies are
// not abandoned mid-write at process exit.
type WorkerPool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewWorkerPool starts size workers. Size must be at least 1.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}

	pool := &WorkerPool{
		jobs: make(chan func(), 256),
	}

	for i := 0; i < size; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[WORKER-POOL] Recovered from panic in background job: %v", r)
				}
			}()
			job()
		}()
	}
}

// Submit queues a job. Jobs submitted after Shutdown are dropped with a log
// line instead of panicking on the closed channel.
func (p *WorkerPool) Submit(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		log.Println("[WORKER-POOL] Pool is shut down, dropping job")
		return
	}
	p.jobs <- job
}

// Shutdown stops accepting jobs and blocks until all queued work finishes.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// Package parallel provides the worker pool used to build raster pyramid
// levels band by band.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of goroutines draining one shared queue.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup
	running atomic.Bool
	closeMu sync.RWMutex
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), workers*4),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			for work := range p.queue {
				work()
			}
		}()
	}
	return p
}

// ExecuteAll runs every work item and waits for all of them.
// On a closed pool the items run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var done sync.WaitGroup
	done.Add(len(work))
	for _, fn := range work {
		p.queue <- func() {
			defer done.Done()
			fn()
		}
	}
	done.Wait()
}

// Rows splits [0, n) into contiguous bands, at most one per worker, and
// calls fn(lo, hi) for each band in parallel.
func (p *WorkerPool) Rows(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	bands := min(p.workers, n)
	step := (n + bands - 1) / bands

	work := make([]func(), 0, bands)
	for lo := 0; lo < n; lo += step {
		lo, hi := lo, min(lo+step, n)
		work = append(work, func() { fn(lo, hi) })
	}
	p.ExecuteAll(work)
}

// Close stops the workers after queued work has finished.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()

	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.queue)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

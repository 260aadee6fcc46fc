package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of long-lived worker goroutines that sleep on a
// wake condition between bursts of work.
//
// Workers do not receive work items from the pool. Each worker runs a loop
// supplied by the owner, polls shared state for work, and parks in Sleep when
// it finds none. The producer publishes work first and calls WakeAll second;
// Sleep re-checks the idle predicate under the pool lock, so a wakeup issued
// between a worker's last poll and its call to Sleep is never lost.
//
// A second condition carries progress in the other direction: workers call
// NotifyProgress after advancing, and a producer waiting for some outcome
// blocks in WaitProgress instead of spinning.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	mu   sync.Mutex
	wake *sync.Cond

	progressMu sync.Mutex
	progress   *sync.Cond

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool has been started and not closed.
	running atomic.Bool

	started atomic.Bool
	wakeups atomic.Uint64
}

// NewWorkerPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used. Workers are launched by
// Start.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{workers: workers}
	p.wake = sync.NewCond(&p.mu)
	p.progress = sync.NewCond(&p.progressMu)
	return p
}

// Start launches the workers. Each runs loop with its id in [0, Workers())
// and is expected to return once IsRunning reports false. Start may only be
// called once.
func (p *WorkerPool) Start(loop func(id int)) {
	if !p.started.CompareAndSwap(false, true) {
		panic("parallel: WorkerPool started twice")
	}
	p.running.Store(true)
	p.wg.Add(p.workers)
	for i := range p.workers {
		go func(id int) {
			defer p.wg.Done()
			loop(id)
		}(i)
	}
}

// Sleep blocks the calling worker while the pool is running and idle reports
// true. idle is evaluated with the pool lock held and must not block. Sleep
// returns whether the pool is still running.
func (p *WorkerPool) Sleep(idle func() bool) bool {
	p.mu.Lock()
	for p.running.Load() && idle() {
		p.wake.Wait()
	}
	p.mu.Unlock()
	return p.running.Load()
}

// WakeAll wakes every sleeping worker so it re-evaluates its idle predicate.
func (p *WorkerPool) WakeAll() {
	p.wakeups.Add(1)
	p.mu.Lock()
	p.wake.Broadcast()
	p.mu.Unlock()
}

// NotifyProgress wakes goroutines blocked in WaitProgress.
func (p *WorkerPool) NotifyProgress() {
	p.progressMu.Lock()
	p.progress.Broadcast()
	p.progressMu.Unlock()
}

// WaitProgress blocks until done reports true or the pool is closed. done is
// evaluated with the progress lock held, first immediately and then after
// every NotifyProgress. It may call WakeAll.
func (p *WorkerPool) WaitProgress(done func() bool) {
	p.progressMu.Lock()
	for !done() && p.running.Load() {
		p.progress.Wait()
	}
	p.progressMu.Unlock()
}

// Close stops the workers and waits for their loops to return.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.WakeAll()
	p.NotifyProgress()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true between Start and Close.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// Wakeups returns how many times WakeAll has been called.
func (p *WorkerPool) Wakeups() uint64 {
	return p.wakeups.Load()
}

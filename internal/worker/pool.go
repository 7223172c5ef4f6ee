// Package worker schedules CPU-bound tasks off the submitting goroutine.
//
// A Pool owns a fixed set of goroutines fed from an unbounded FIFO, so
// Submit never blocks. A Serial layered on a Pool runs its own tasks one at
// a time in submission order while different Serials share the Pool's
// goroutines in parallel.
package worker

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
)

// ErrClosed is returned when submitting to a closed Pool.
var ErrClosed = errors.New("worker pool closed")

// Pool is a fixed-size goroutine pool with an unbounded task queue.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	workers int
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPool starts a pool with the given number of goroutines. A value below
// one uses runtime.GOMAXPROCS(0).
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		workers: workers,
		logger:  logger.With("component", "worker_pool"),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p
}

// Submit queues task for execution. It never blocks.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Close stops accepting tasks, runs everything already queued and waits for
// the goroutines to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("worker pool stopped", "workers", p.workers)
}

// Workers returns the number of goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Pending returns the number of queued tasks not yet started.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.safeRun(task)
	}
}

// safeRun keeps a panicking task from taking its goroutine down.
func (p *Pool) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

package worker

import (
	"sync"
)

// Serial runs tasks one at a time, in submission order, on a Pool.
//
// At most one task of a Serial is queued on or running in the Pool at any
// moment. After each task the Serial re-enters the Pool's queue behind
// other work, so a busy Serial cannot starve the others.
type Serial struct {
	pool    *Pool
	mu      sync.Mutex
	idle    *sync.Cond
	queue   []func()
	running bool
}

// NewSerial creates a Serial backed by pool.
func NewSerial(pool *Pool) *Serial {
	s := &Serial{pool: pool}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Submit queues task behind every task previously submitted to s.
func (s *Serial) Submit(task func()) error {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.pool.Submit(s.step); err != nil {
		s.mu.Lock()
		s.queue = nil
		s.running = false
		s.idle.Broadcast()
		s.mu.Unlock()
		return err
	}
	return nil
}

// Len returns the number of tasks queued but not yet started.
func (s *Serial) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Wait blocks until every submitted task has finished.
func (s *Serial) Wait() {
	s.mu.Lock()
	for s.running {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// step runs the oldest queued task and hands the rest back to the pool.
func (s *Serial) step() {
	s.mu.Lock()
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.mu.Unlock()

	s.pool.safeRun(task)

	s.mu.Lock()
	if len(s.queue) == 0 {
		s.running = false
		s.idle.Broadcast()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.pool.Submit(s.step); err != nil {
		// The pool is shutting down: finish our own queue inline so that
		// every accepted task still runs exactly once.
		s.drainInline()
	}
}

func (s *Serial) drainInline() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.pool.safeRun(task)
	}
}

// Package strand provides a serialized execution context. Work posted to a
// strand runs on a single goroutine, one function at a time, in the order it
// was posted.
package strand

import (
	"sync"
)

// Strand runs posted work one function at a time on its own goroutine. The
// queue is unbounded so posting never blocks the caller.
type Strand struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New constructs a strand and starts its goroutine.
func New() *Strand {
	s := Strand{
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	// We don't want to return until we know the G is up and running.
	hasStarted := make(chan bool)

	go func() {
		defer close(s.done)
		hasStarted <- true
		s.run()
	}()

	<-hasStarted

	return &s
}

// Post queues the function to run after all previously posted work. It
// returns false when the strand is closed and the function will never run.
func (s *Strand) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.queue = append(s.queue, fn)
	s.cond.Signal()

	return true
}

// Close stops the strand from accepting work and drops everything that is
// still queued. The function currently running, if any, is allowed to
// finish. Close does not wait and is safe to call from the strand itself.
func (s *Strand) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.queue = nil
	s.cond.Signal()
}

// Stop closes the strand and waits for its goroutine to terminate. Once Stop
// returns no posted function will ever run again. Stop must not be called
// from work running on the strand.
func (s *Strand) Stop() {
	s.Close()
	<-s.done
}

// Done returns a channel that is closed once the strand goroutine has
// terminated.
func (s *Strand) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the strand still accepts work.
func (s *Strand) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// run drains the queue until the strand is closed.
func (s *Strand) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}

		if s.closed {
			s.mu.Unlock()
			return
		}

		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}

// Package semaphore provides a FIFO-fair counting semaphore used to bound
// how many suites of one phase run at the same time.
//
// Permits are handed directly from Release to the oldest waiter, so a
// waiter that queued before a release is always resumed before any Acquire
// issued after that release. Acquire honors context cancellation; callers
// that pass context.Background() block until a permit arrives.
package semaphore

import (
	"container/list"
	"context"
	"sync"
)

// Semaphore is a counting semaphore with a FIFO wait list.
type Semaphore struct {
	mu       sync.Mutex
	capacity int
	permits  int
	waiters  list.List // of chan struct{}
}

// New creates a semaphore holding capacity permits. Capacities below 1 are
// clamped to 1 so that a phase always makes progress.
func New(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{capacity: capacity, permits: capacity}
}

// Acquire takes a permit, blocking until one is available or ctx is done.
// Returns nil on success, or the context error if cancelled while waiting.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	granted := false
	select {
	case <-ready:
		granted = true
	default:
		s.waiters.Remove(elem)
	}
	s.mu.Unlock()

	// The permit arrived while we were giving up; pass it on.
	if granted {
		s.Release()
	}
	return ctx.Err()
}

// TryAcquire takes a permit only if one is free and nobody is waiting.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		return true
	}
	return false
}

// Release returns a permit. If goroutines are waiting, the permit goes
// straight to the oldest one. Releasing more permits than the capacity is
// ignored.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if front := s.waiters.Front(); front != nil {
		s.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	if s.permits < s.capacity {
		s.permits++
	}
}

// Available returns the number of free permits.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// Waiting returns the number of goroutines blocked in Acquire.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// Capacity returns the configured number of permits.
func (s *Semaphore) Capacity() int {
	return s.capacity
}

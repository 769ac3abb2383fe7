package semaphore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitForWaiters polls until n goroutines are blocked in Acquire.
func waitForWaiters(t *testing.T, s *Semaphore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Waiting() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Waiting() = %d, want %d", s.Waiting(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_ClampsCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		want     int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{4, 4},
	}
	for _, tt := range tests {
		s := New(tt.capacity)
		if s.Capacity() != tt.want {
			t.Errorf("New(%d).Capacity() = %d, want %d", tt.capacity, s.Capacity(), tt.want)
		}
		if s.Available() != tt.want {
			t.Errorf("New(%d).Available() = %d, want %d", tt.capacity, s.Available(), tt.want)
		}
	}
}

func TestSemaphore_BasicAcquireRelease(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if s.Available() != 0 {
		t.Errorf("Available() = %d, want 0", s.Available())
	}
	if s.TryAcquire() {
		t.Error("TryAcquire() = true with no permits left")
	}

	s.Release()
	if s.Available() != 1 {
		t.Errorf("after release: Available() = %d, want 1", s.Available())
	}
	s.Release()
	s.Release() // over-release is ignored
	if s.Available() != 2 {
		t.Errorf("after over-release: Available() = %d, want 2", s.Available())
	}
}

func TestSemaphore_BlocksAtCapacity(t *testing.T) {
	s := New(1)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = s.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire should have unblocked after Release")
	}
	if s.Available() != 0 {
		t.Errorf("permit should have been handed over, Available() = %d", s.Available())
	}
}

func TestSemaphore_FIFO(t *testing.T) {
	s := New(1)
	ctx := context.Background()
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	order := make(chan int, 3)
	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := s.Acquire(ctx); err != nil {
				t.Errorf("waiter %d: %v", id, err)
				return
			}
			order <- id
			s.Release()
		}(i)
		waitForWaiters(t, s, i)
	}

	s.Release()
	wg.Wait()
	close(order)

	want := 1
	for got := range order {
		if got != want {
			t.Errorf("resumed waiter %d, want %d", got, want)
		}
		want++
	}
}

func TestSemaphore_TryAcquireRespectsWaiters(t *testing.T) {
	s := New(1)
	ctx := context.Background()
	_ = s.Acquire(ctx)

	done := make(chan struct{})
	go func() {
		_ = s.Acquire(ctx)
		close(done)
	}()
	waitForWaiters(t, s, 1)

	s.Release()
	<-done
	if s.TryAcquire() {
		t.Error("TryAcquire() should fail while the handed-off permit is held")
	}
}

func TestSemaphore_ContextCancellation(t *testing.T) {
	s := New(1)
	_ = s.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Acquire(ctx)
	}()
	waitForWaiters(t, s, 1)

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Acquire() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled Acquire did not return")
	}
	if s.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0 after cancellation", s.Waiting())
	}

	s.Release()
	if s.Available() != 1 {
		t.Errorf("Available() = %d, want 1", s.Available())
	}
}

func TestSemaphore_AlreadyCancelled(t *testing.T) {
	s := New(1)
	_ = s.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Error("Acquire with a cancelled context should fail when no permit is free")
	}
	if s.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", s.Waiting())
	}
}

func TestSemaphore_NeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	s := New(capacity)
	ctx := context.Background()

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			if err := s.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
			s.Release()
		})
	}
	wg.Wait()

	if peak.Load() > capacity {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), capacity)
	}
	if s.Available() != capacity {
		t.Errorf("Available() = %d, want %d", s.Available(), capacity)
	}
}

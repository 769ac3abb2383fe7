package resource

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/event"
)

var testLimits = Requirements{MemoryMB: 100, CPUPercent: 100, NetworkMbps: 100, StorageMB: 100, ConcurrentUsers: 100}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPool_ResourceExhaustionAndRelease(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))

	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 80}); err != nil {
		t.Fatalf("Reserve(s1) error = %v", err)
	}

	_, err := pool.Reserve("s2", Requirements{MemoryMB: 30})
	if err == nil {
		t.Fatal("Reserve(s2) should fail while s1 holds 80MB")
	}
	if !errors.Is(err, errors.ErrInsufficientResources) {
		t.Errorf("error = %v, want ErrInsufficientResources", err)
	}
	if !strings.Contains(err.Error(), "insufficient memory: requested 30, available 20") {
		t.Errorf("error = %q, want memory shortfall message", err.Error())
	}
	var resErr *errors.ResourceError
	if !errors.As(err, &resErr) || len(resErr.Shortfalls) != 1 {
		t.Fatalf("error should be a ResourceError with one shortfall, got %#v", err)
	}

	if !pool.Release("s1") {
		t.Error("Release(s1) = false, want true")
	}
	if _, err := pool.Reserve("s2", Requirements{MemoryMB: 30}); err != nil {
		t.Errorf("Reserve(s2) after release error = %v", err)
	}
}

func TestPool_ReleaseUnknownIsNoop(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))
	if pool.Release("missing") {
		t.Error("Release(missing) = true, want false")
	}
}

func TestPool_ReserveOverwritesSameSession(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))

	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 60}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	// The old 60MB does not count against the replacement.
	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 90}); err != nil {
		t.Fatalf("second Reserve(s1) error = %v", err)
	}
	if got := pool.Used().MemoryMB; got != 90 {
		t.Errorf("Used().MemoryMB = %v, want 90", got)
	}
	if len(pool.Allocations()) != 1 {
		t.Errorf("Allocations() = %d entries, want 1", len(pool.Allocations()))
	}
}

func TestPool_Conservation(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))
	held := map[string]Requirements{}

	steps := []struct {
		op  string
		id  string
		req Requirements
	}{
		{"reserve", "a", Requirements{MemoryMB: 30, CPUPercent: 10, NetworkMbps: 5}},
		{"reserve", "b", Requirements{MemoryMB: 40, StorageMB: 20}},
		{"reserve", "c", Requirements{MemoryMB: 40}}, // rejected
		{"release", "a", Requirements{}},
		{"reserve", "c", Requirements{MemoryMB: 40, ConcurrentUsers: 3}},
		{"release", "missing", Requirements{}},
		{"reserve", "d", Requirements{CPUPercent: 95}}, // rejected
	}

	for i, step := range steps {
		switch step.op {
		case "reserve":
			if _, err := pool.Reserve(step.id, step.req); err == nil {
				held[step.id] = step.req
			}
		case "release":
			pool.Release(step.id)
			delete(held, step.id)
		}

		var want Requirements
		for _, r := range held {
			want = want.Plus(r)
		}
		if got := pool.Used(); got != want {
			t.Errorf("step %d: Used() = %+v, want %+v", i, got, want)
		}
		if !pool.Used().Fits(pool.Limits()) {
			t.Errorf("step %d: usage exceeds limits", i)
		}
	}
}

func TestPool_ConcurrentReserveNeverOvercommits(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := range 20 {
		wg.Go(func() {
			id := string(rune('a' + i))
			if _, err := pool.Reserve(id, Requirements{MemoryMB: 10}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("successful reservations = %d, want 10", succeeded)
	}
	if got := pool.Used().MemoryMB; got != 100 {
		t.Errorf("Used().MemoryMB = %v, want 100", got)
	}
}

func TestPool_CanSatisfyDoesNotReserve(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))

	if err := pool.CanSatisfy(Requirements{MemoryMB: 50}); err != nil {
		t.Errorf("CanSatisfy() = %v, want nil", err)
	}
	if !pool.Used().IsZero() {
		t.Errorf("CanSatisfy should not reserve, Used() = %+v", pool.Used())
	}
	if err := pool.CanSatisfy(Requirements{CPUPercent: 150}); !errors.Is(err, errors.ErrInsufficientResources) {
		t.Errorf("CanSatisfy() = %v, want ErrInsufficientResources", err)
	}
}

func TestPool_Utilization(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))

	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 50, CPUPercent: 50, NetworkMbps: 50, StorageMB: 50, ConcurrentUsers: 50}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	if got := pool.Utilization(); got < 49.999 || got > 50.001 {
		t.Errorf("Utilization() = %v, want 50", got)
	}

	pool.Release("s1")
	if _, err := pool.Reserve("s2", Requirements{MemoryMB: 100}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	if got := pool.Utilization(); got < 29.999 || got > 30.001 {
		t.Errorf("Utilization() = %v, want 30", got)
	}
	if got := pool.UtilizationBreakdown()[DimensionMemory]; got != 100 {
		t.Errorf("UtilizationBreakdown()[memory] = %v, want 100", got)
	}
}

func TestPool_UpdateLimits(t *testing.T) {
	pool := NewPool(WithLimits(testLimits))
	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 60}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}

	err := pool.UpdateLimits(Requirements{MemoryMB: 50})
	if !errors.Is(err, errors.ErrLimitsBelowUsage) {
		t.Fatalf("UpdateLimits() = %v, want ErrLimitsBelowUsage", err)
	}
	if pool.Limits() != testLimits {
		t.Errorf("limits changed after rejected update: %+v", pool.Limits())
	}

	if err := pool.UpdateLimits(Requirements{MemoryMB: 200}); err != nil {
		t.Fatalf("UpdateLimits() = %v", err)
	}
	got := pool.Limits()
	if got.MemoryMB != 200 || got.CPUPercent != testLimits.CPUPercent {
		t.Errorf("Limits() = %+v, want memory 200 with other dimensions unchanged", got)
	}
}

func TestPool_ReserveEvents(t *testing.T) {
	bus := event.NewBus()
	var types []string
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.EventType()) })

	pool := NewPool(WithLimits(testLimits), WithBus(bus))
	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 10}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	_, _ = pool.Reserve("s2", Requirements{MemoryMB: 500})
	pool.Release("s1")
	pool.Release("s1")

	want := []string{event.TypeResourcesReserved, event.TypeResourcesReleased}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestPool_RecordSamplePressure(t *testing.T) {
	bus := event.NewBus()
	var pressure []event.ResourcePressureEvent
	bus.Subscribe(event.TypeResourcePressure, func(e event.Event) {
		pressure = append(pressure, e.(event.ResourcePressureEvent))
	})
	recorded := 0
	bus.Subscribe(event.TypeMetricsRecorded, func(event.Event) { recorded++ })

	pool := NewPool(WithLimits(testLimits), WithBus(bus))
	pool.RecordSample()
	if len(pressure) != 0 {
		t.Errorf("idle pool raised %d pressure events", len(pressure))
	}

	if _, err := pool.Reserve("s1", Requirements{MemoryMB: 95, CPUPercent: 95, NetworkMbps: 95, StorageMB: 95, ConcurrentUsers: 95}); err != nil {
		t.Fatalf("Reserve error = %v", err)
	}
	sample := pool.RecordSample()
	if sample.Utilization <= 90 {
		t.Fatalf("Utilization = %v, want > 90", sample.Utilization)
	}
	if recorded != 2 {
		t.Errorf("metrics_recorded events = %d, want 2", recorded)
	}
	if len(pressure) != 1 {
		t.Fatalf("pressure events = %d, want 1", len(pressure))
	}
	if len(pressure[0].Bottlenecks) != len(Dimensions) {
		t.Errorf("Bottlenecks = %v, want every dimension", pressure[0].Bottlenecks)
	}
	if !strings.HasPrefix(pressure[0].Recommendations[0], "memory bottleneck") {
		t.Errorf("Recommendations[0] = %q", pressure[0].Recommendations[0])
	}
}

func TestPool_HistoryPruning(t *testing.T) {
	clock := newFakeClock()
	pool := NewPool(WithLimits(testLimits), WithClock(clock.Now), WithHistoryWindow(time.Hour), WithMaxSamples(3))

	pool.RecordSample()
	clock.Advance(2 * time.Hour)
	pool.RecordSample()
	if got := len(pool.History()); got != 1 {
		t.Errorf("after window: len(History()) = %d, want 1", got)
	}

	for range 5 {
		clock.Advance(time.Minute)
		pool.RecordSample()
	}
	if got := len(pool.History()); got != 3 {
		t.Errorf("after cap: len(History()) = %d, want 3", got)
	}
}

func TestPool_PredictAvailability(t *testing.T) {
	clock := newFakeClock()
	pool := NewPool(WithLimits(testLimits), WithClock(clock.Now))

	// No history: decided by current headroom.
	if !pool.PredictAvailability(Requirements{MemoryMB: 50}, time.Minute) {
		t.Error("empty pool should predict availability")
	}

	// Usage grows 20MB every 10 minutes.
	for i := range 3 {
		if _, err := pool.Reserve("grow", Requirements{MemoryMB: float64(20 * (i + 1))}); err != nil {
			t.Fatalf("Reserve error = %v", err)
		}
		pool.RecordSample()
		clock.Advance(10 * time.Minute)
	}
	// Last sample: 60MB used, trending +2MB/min.
	if !pool.PredictAvailability(Requirements{MemoryMB: 15}, 0) {
		t.Error("15MB should fit now (projected usage 80MB)")
	}
	if pool.PredictAvailability(Requirements{MemoryMB: 30}, 20*time.Minute) {
		t.Error("30MB should not fit in 20 minutes (projected usage 120MB)")
	}
}

func TestPool_StartStop(t *testing.T) {
	pool := NewPool(WithLimits(testLimits), WithSampleInterval(5*time.Millisecond))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := pool.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(pool.History()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sampler recorded nothing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pool.Stop()
	pool.Stop()
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/suitepilot/suitepilot/internal/event"
)

func newCollector(t *testing.T) (*Collector, *event.Bus) {
	t.Helper()
	c := New(prometheus.NewRegistry())
	bus := event.NewBus()
	c.Attach(bus)
	return c, bus
}

func TestCollector_SessionLifecycle(t *testing.T) {
	c, bus := newCollector(t)

	bus.Publish(event.NewSessionCreatedEvent("s1", "cfg", "test", 2, 1))
	bus.Publish(event.NewSessionStartedEvent("s1", 1, time.Second))

	if got := promtest.ToFloat64(c.SessionsRunning); got != 1 {
		t.Errorf("SessionsRunning = %v, want 1", got)
	}

	bus.Publish(event.NewSuiteCompletedEvent("s1", "p", "a", "passed", time.Second, 3, 3))
	bus.Publish(event.NewSuiteCompletedEvent("s1", "p", "b", "failed", time.Second, 3, 2))
	bus.Publish(event.NewSessionFailedEvent("s1", "execution", "1 of 2 suites failed"))
	bus.Publish(event.NewSessionCompletedEvent("s1", "failed", 50, time.Minute, 2))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"created", c.SessionsCreated, 1},
		{"running", c.SessionsRunning, 0},
		{"finished failed", c.SessionsFinished.WithLabelValues("failed"), 1},
		{"failures execution", c.SessionFailures.WithLabelValues("execution"), 1},
		{"suites passed", c.SuitesFinished.WithLabelValues("passed"), 1},
		{"suites failed", c.SuitesFinished.WithLabelValues("failed"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promtest.ToFloat64(tt.c); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCollector_QueueAndPool(t *testing.T) {
	c, bus := newCollector(t)

	bus.Publish(event.NewQueueUpdatedEvent(3, 100, time.Minute, 2*time.Minute, 7, 10, 7, 1))
	bus.Publish(event.NewItemRequeuedEvent("s1", 30, 1, "short on memory"))
	bus.Publish(event.NewItemFailedEvent("s2", 3, "short on cpu"))
	bus.Publish(event.NewMetricsRecordedEvent(
		event.Dimensions{"memory": 1000, "cpu": 100},
		event.Dimensions{"memory": 250, "cpu": 50},
		37.5, 75,
	))
	bus.Publish(event.NewResourcePressureEvent(95, []string{"cpu"}, nil))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"queue length", c.QueueLength, 3},
		{"queue capacity", c.QueueCapacity, 100},
		{"oldest wait", c.QueueOldestWait, 120},
		{"throughput", c.QueueThroughput, 7},
		{"requeues", c.QueueRequeues, 1},
		{"dropped", c.QueueDropped, 1},
		{"utilization", c.PoolUtilization, 37.5},
		{"efficiency", c.PoolEfficiency, 75},
		{"memory capacity", c.PoolCapacity.WithLabelValues("memory"), 1000},
		{"cpu used", c.PoolUsed.WithLabelValues("cpu"), 50},
		{"pressure", c.PoolPressure, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promtest.ToFloat64(tt.c); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCollector_Detach(t *testing.T) {
	c, bus := newCollector(t)

	c.Detach()
	bus.Publish(event.NewSessionCreatedEvent("s1", "cfg", "test", 1, 1))

	if got := promtest.ToFloat64(c.SessionsCreated); got != 0 {
		t.Errorf("SessionsCreated = %v, want 0 after Detach", got)
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
	c.Detach()
}

func TestCollector_AttachMoves(t *testing.T) {
	c, first := newCollector(t)
	second := event.NewBus()

	c.Attach(second)
	first.Publish(event.NewSessionCancelledEvent("s1", "x"))
	second.Publish(event.NewSessionCancelledEvent("s2", "y"))

	if got := promtest.ToFloat64(c.SessionsCancelled); got != 1 {
		t.Errorf("SessionsCancelled = %v, want 1", got)
	}
	if first.SubscriptionCount() != 0 {
		t.Error("old bus should have no subscriptions left")
	}
}

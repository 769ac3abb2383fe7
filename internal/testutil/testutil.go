// Package testutil provides shared fixtures for suitepilot tests: suite and
// configuration builders and a recorder for bus events.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// Suite builds a descriptor with a one-second estimate and a light
// resource footprint.
func Suite(id string, deps ...string) model.SuiteDescriptor {
	return model.SuiteDescriptor{
		ID:                id,
		Name:              "Suite " + id,
		Dependencies:      deps,
		EstimatedDuration: time.Second,
		Resources:         resource.Requirements{MemoryMB: 100, CPUPercent: 10, NetworkMbps: 10, StorageMB: 50, ConcurrentUsers: 1},
	}
}

// Config wraps suites in a valid configuration for the test environment.
func Config(id string, concurrency int, suites ...model.SuiteDescriptor) model.TestConfiguration {
	return model.TestConfiguration{
		ID:               id,
		Name:             "config " + id,
		Environment:      model.EnvTest,
		ConcurrencyLevel: concurrency,
		TestSuites:       suites,
	}
}

// Recorder captures every event published on a bus.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

// NewRecorder subscribes a recorder to every event on bus.
func NewRecorder(bus *event.Bus) *Recorder {
	r := &Recorder{}
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// Count returns how many events of eventType were recorded.
func (r *Recorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// WaitFor polls until cond returns true or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

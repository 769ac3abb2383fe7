package orchestrator

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/logging"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/runner"
)

const (
	// DefaultMaxConcurrentSessions bounds how many sessions run at once.
	DefaultMaxConcurrentSessions = 5

	// DefaultMaxRetainedSessions bounds how many finished sessions are kept
	// for inspection. The oldest finished session is evicted first.
	DefaultMaxRetainedSessions = 1000

	// DefaultDispatchInterval is the dispatcher's safety tick. Enqueues,
	// releases and finished sessions wake it sooner.
	DefaultDispatchInterval = 5 * time.Second
)

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	maxConcurrent    int
	maxRetained      int
	dispatchInterval time.Duration
	runner           runner.Runner
	bus              *event.Bus
	logger           *logging.Logger
	queue            *queue.Queue
	pool             *resource.Pool
	clock            func() time.Time
}

// WithMaxConcurrentSessions sets how many sessions may run at once.
// Values below 1 are ignored.
func WithMaxConcurrentSessions(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithMaxRetainedSessions sets how many finished sessions are retained.
// Values below 1 are ignored.
func WithMaxRetainedSessions(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRetained = n
		}
	}
}

// WithDispatchInterval sets the dispatcher's safety tick.
func WithDispatchInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.dispatchInterval = d
		}
	}
}

// WithRunner sets the suite runner. The default is a simulated runner.
func WithRunner(r runner.Runner) Option {
	return func(c *config) {
		c.runner = r
	}
}

// WithBus sets the event bus. The queue and pool built by New publish on
// the same bus. A queue or pool passed in explicitly should share it, or
// the dispatcher only wakes on its safety tick.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithQueue supplies a preconfigured queue. The orchestrator starts and
// stops it.
func WithQueue(q *queue.Queue) Option {
	return func(c *config) {
		c.queue = q
	}
}

// WithPool supplies a preconfigured resource pool. The orchestrator starts
// and stops it.
func WithPool(p *resource.Pool) Option {
	return func(c *config) {
		c.pool = p
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

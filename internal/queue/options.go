package queue

import (
	"maps"
	"time"

	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/logging"
)

const (
	// DefaultMaxSize is the default queue capacity.
	DefaultMaxSize = 100

	// DefaultMaxRetries is the default retry budget per item.
	DefaultMaxRetries = 3

	// DefaultOptimizeInterval is how often the optimizer runs.
	DefaultOptimizeInterval = 5 * time.Minute

	// defaultWeight applies to environments missing from the weight table.
	defaultWeight = 100.0
)

// DefaultPriorityWeights returns the per-environment weight table.
func DefaultPriorityWeights() map[string]float64 {
	return map[string]float64{
		"production":  100,
		"staging":     80,
		"development": 60,
		"test":        60,
		"urgent":      200,
	}
}

// Option configures a Queue.
type Option func(*config)

type config struct {
	maxSize          int
	maxRetries       int
	weights          map[string]float64
	optimizeInterval time.Duration
	bus              *event.Bus
	logger           *logging.Logger
	clock            func() time.Time
}

// WithMaxSize sets the capacity. Non-positive values keep the default.
func WithMaxSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithMaxRetries sets the default retry budget for items that do not
// carry their own. Negative values keep the default.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithPriorityWeights merges weights into the default table.
func WithPriorityWeights(weights map[string]float64) Option {
	return func(c *config) {
		maps.Copy(c.weights, weights)
	}
}

// WithOptimizeInterval sets the optimizer period.
func WithOptimizeInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.optimizeInterval = d
		}
	}
}

// WithBus sets the bus that receives queue events.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

package resource

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/logging"
)

const (
	// defaultSampleInterval is how often the sampler records utilization.
	defaultSampleInterval = 30 * time.Second

	// defaultHistoryWindow is how long samples are retained.
	defaultHistoryWindow = 24 * time.Hour

	// defaultMaxSamples caps the history regardless of the window.
	defaultMaxSamples = 2880

	// defaultPressureThreshold is the composite utilization above which the
	// sampler publishes resources.pressure.
	defaultPressureThreshold = 90.0

	// bottleneckThreshold marks a single dimension as a bottleneck.
	bottleneckThreshold = 80.0

	// predictionWindow is the trailing window used for trend extrapolation.
	predictionWindow = time.Hour
)

// Option configures a Pool.
type Option func(*config)

type config struct {
	limits            Requirements
	bus               *event.Bus
	logger            *logging.Logger
	sampleInterval    time.Duration
	historyWindow     time.Duration
	maxSamples        int
	pressureThreshold float64
	clock             func() time.Time
}

// WithLimits sets the pool capacity. The default is DefaultLimits().
func WithLimits(limits Requirements) Option {
	return func(c *config) {
		c.limits = limits
	}
}

// WithBus sets the bus that receives reservation and sampling events.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithLogger sets the logger for the pool.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSampleInterval sets the sampler period.
// A zero or negative value is replaced with the default (30s).
func WithSampleInterval(d time.Duration) Option {
	return func(c *config) {
		c.sampleInterval = d
	}
}

// WithHistoryWindow sets how long samples are kept (default 24h).
func WithHistoryWindow(d time.Duration) Option {
	return func(c *config) {
		c.historyWindow = d
	}
}

// WithMaxSamples caps the number of retained samples.
func WithMaxSamples(n int) Option {
	return func(c *config) {
		c.maxSamples = n
	}
}

// WithPressureThreshold sets the composite utilization that triggers
// resources.pressure (default 90).
func WithPressureThreshold(pct float64) Option {
	return func(c *config) {
		c.pressureThreshold = pct
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

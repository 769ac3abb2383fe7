// Package metrics exports orchestration activity as Prometheus metrics.
//
// A Collector subscribes to every event on a bus and keeps counters and
// gauges for sessions, suites, the queue and the resource pool. It owns no
// state of its own beyond the Prometheus collectors, so it can be attached
// to a running orchestrator at any time.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/suitepilot/suitepilot/internal/event"
)

const namespace = "suitepilot"

// Collector holds the Prometheus metrics fed by bus events.
type Collector struct {
	// Session metrics
	SessionsCreated   prometheus.Counter
	SessionsRunning   prometheus.Gauge
	SessionsFinished  *prometheus.CounterVec
	SessionFailures   *prometheus.CounterVec
	SessionsCancelled prometheus.Counter
	SessionDuration   prometheus.Histogram
	SessionSuccess    prometheus.Histogram

	// Suite metrics
	SuitesFinished *prometheus.CounterVec
	SuiteDuration  *prometheus.HistogramVec

	// Queue metrics
	QueueLength     prometheus.Gauge
	QueueCapacity   prometheus.Gauge
	QueueOldestWait prometheus.Gauge
	QueueThroughput prometheus.Gauge
	QueueRequeues   prometheus.Counter
	QueueDropped    prometheus.Counter

	// Pool metrics
	PoolUtilization prometheus.Gauge
	PoolEfficiency  prometheus.Gauge
	PoolCapacity    *prometheus.GaugeVec
	PoolUsed        *prometheus.GaugeVec
	PoolPressure    prometheus.Counter

	mu    sync.Mutex
	bus   *event.Bus
	subID string
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_running",
			Help:      "Number of sessions currently executing",
		}),
		SessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of finalized sessions by terminal status",
		}, []string{"status"}),
		SessionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of failed sessions by error category",
		}, []string{"category"}),
		SessionsCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cancelled_total",
			Help:      "Total number of sessions cancelled while queued or running",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of finalized sessions",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		SessionSuccess: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_success_rate_percent",
			Help:      "Suite success rate of finalized sessions",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		SuitesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suites_finished_total",
			Help:      "Total number of finished suites by status",
		}, []string{"status"}),
		SuiteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suite_duration_seconds",
			Help:      "Duration of finished suites",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		QueueLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of sessions waiting in the queue",
		}),
		QueueCapacity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Maximum number of queued sessions",
		}),
		QueueOldestWait: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_oldest_wait_seconds",
			Help:      "Wait time of the longest-waiting queued session",
		}),
		QueueThroughput: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_throughput_per_hour",
			Help:      "Sessions dequeued within the trailing hour",
		}),
		QueueRequeues: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_requeues_total",
			Help:      "Total number of dispatch attempts sent back to the queue",
		}),
		QueueDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Total number of queued sessions dropped after exhausting retries",
		}),
		PoolUtilization: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_utilization_percent",
			Help:      "Composite resource pool utilization",
		}),
		PoolEfficiency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_efficiency_percent",
			Help:      "How evenly the pool's dimensions are used",
		}),
		PoolCapacity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_capacity",
			Help:      "Resource pool limit per dimension",
		}, []string{"dimension"}),
		PoolUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_used",
			Help:      "Reserved resources per dimension",
		}, []string{"dimension"}),
		PoolPressure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_pressure_events_total",
			Help:      "Total number of resource pressure warnings",
		}),
	}
}

// Attach subscribes the collector to bus. Attaching again moves the
// subscription to the new bus.
func (c *Collector) Attach(bus *event.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus != nil {
		c.bus.Unsubscribe(c.subID)
	}
	c.bus = bus
	c.subID = bus.SubscribeAll(c.Observe)
}

// Detach removes the collector's bus subscription.
func (c *Collector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus != nil {
		c.bus.Unsubscribe(c.subID)
		c.bus = nil
		c.subID = ""
	}
}

// Observe updates the metrics for one event. Unknown events are ignored.
func (c *Collector) Observe(e event.Event) {
	switch ev := e.(type) {
	case event.SessionCreatedEvent:
		c.SessionsCreated.Inc()
	case event.SessionStartedEvent:
		c.SessionsRunning.Inc()
	case event.SessionCompletedEvent:
		c.SessionsRunning.Dec()
		c.SessionsFinished.WithLabelValues(ev.Status).Inc()
		c.SessionDuration.Observe(ev.Duration.Seconds())
		c.SessionSuccess.Observe(ev.SuccessRate)
	case event.SessionFailedEvent:
		c.SessionFailures.WithLabelValues(ev.Category).Inc()
	case event.SessionCancelledEvent:
		c.SessionsCancelled.Inc()
	case event.SuiteCompletedEvent:
		c.SuitesFinished.WithLabelValues(ev.Status).Inc()
		c.SuiteDuration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	case event.QueueUpdatedEvent:
		c.QueueLength.Set(float64(ev.Length))
		c.QueueCapacity.Set(float64(ev.Capacity))
		c.QueueOldestWait.Set(ev.OldestWait.Seconds())
		c.QueueThroughput.Set(float64(ev.ThroughputPerHour))
	case event.ItemRequeuedEvent:
		c.QueueRequeues.Inc()
	case event.ItemFailedEvent:
		c.QueueDropped.Inc()
	case event.ResourcesReservedEvent:
		c.PoolUtilization.Set(ev.Utilization)
	case event.ResourcesReleasedEvent:
		c.PoolUtilization.Set(ev.Utilization)
	case event.MetricsRecordedEvent:
		c.PoolUtilization.Set(ev.Utilization)
		c.PoolEfficiency.Set(ev.Efficiency)
		for dim, v := range ev.Total {
			c.PoolCapacity.WithLabelValues(dim).Set(v)
		}
		for dim, v := range ev.Used {
			c.PoolUsed.WithLabelValues(dim).Set(v)
		}
	case event.ResourcePressureEvent:
		c.PoolPressure.Inc()
	}
}

package queue

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/model"
)

// Item is one session waiting to run.
type Item struct {
	SessionID         string
	Plan              *model.ExecutionPlan
	Priority          float64 // mutable; higher runs first
	BasePriority      float64 // priority at first enqueue
	Environment       string
	EstimatedDuration time.Duration
	QueuedAt          time.Time // reset on every requeue
	FirstQueuedAt     time.Time
	RetryCount        int
	MaxRetries        int
	LastReason        string
}

// HealthStatus grades the queue.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// severity orders statuses so the worst one wins.
func (s HealthStatus) severity() int {
	switch s {
	case HealthCritical:
		return 2
	case HealthWarning:
		return 1
	default:
		return 0
	}
}

// Metrics is a point-in-time snapshot of the queue.
type Metrics struct {
	Length            int            `json:"length"`
	Capacity          int            `json:"capacity"`
	Occupancy         float64        `json:"occupancy"` // percent of capacity
	AverageWait       time.Duration  `json:"average_wait"`
	OldestWait        time.Duration  `json:"oldest_wait"`
	ThroughputPerHour int            `json:"throughput_per_hour"`
	TotalEnqueued     int            `json:"total_enqueued"`
	TotalDequeued     int            `json:"total_dequeued"`
	TotalRequeued     int            `json:"total_requeued"`
	TotalFailed       int            `json:"total_failed"`
	ByEnvironment     map[string]int `json:"by_environment,omitempty"`
}

// Health is the result of a queue health check.
type Health struct {
	Status          HealthStatus `json:"status"`
	Issues          []string     `json:"issues,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
	Metrics         Metrics      `json:"metrics"`
}

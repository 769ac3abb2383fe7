package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.started", "queue.updated")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeSessionCreated   = "session.created"
	TypeSessionStarted   = "session.started"
	TypeSessionProgress  = "session.progress"
	TypeSessionCompleted = "session.completed"
	TypeSessionFailed    = "session.failed"
	TypeSessionCancelled = "session.cancelled"

	TypePhaseStarted   = "phase.started"
	TypePhaseCompleted = "phase.completed"
	TypeSuiteStarted   = "suite.started"
	TypeSuiteCompleted = "suite.completed"

	TypeItemEnqueued = "queue.item_enqueued"
	TypeItemRequeued = "queue.item_requeued"
	TypeItemFailed   = "queue.item_failed"
	TypeQueueUpdated = "queue.updated"

	TypeResourcesReserved = "resources.reserved"
	TypeResourcesReleased = "resources.released"
	TypeResourcePressure  = "resources.pressure"
	TypeMetricsRecorded   = "resources.metrics_recorded"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Dimensions is a resource vector keyed by dimension name
// ("memory", "cpu", "network", "storage", "users").
type Dimensions map[string]float64

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionCreatedEvent is emitted when a session has been planned and queued.
type SessionCreatedEvent struct {
	baseEvent
	SessionID       string
	ConfigurationID string
	Environment     string
	SuiteCount      int
	PhaseCount      int
}

// NewSessionCreatedEvent creates a SessionCreatedEvent.
func NewSessionCreatedEvent(sessionID, configurationID, environment string, suiteCount, phaseCount int) SessionCreatedEvent {
	return SessionCreatedEvent{
		baseEvent:       newBaseEvent(TypeSessionCreated),
		SessionID:       sessionID,
		ConfigurationID: configurationID,
		Environment:     environment,
		SuiteCount:      suiteCount,
		PhaseCount:      phaseCount,
	}
}

// SessionStartedEvent is emitted when a session leaves the queue and begins running.
type SessionStartedEvent struct {
	baseEvent
	SessionID  string
	PhaseCount int
	QueuedFor  time.Duration
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID string, phaseCount int, queuedFor time.Duration) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent:  newBaseEvent(TypeSessionStarted),
		SessionID:  sessionID,
		PhaseCount: phaseCount,
		QueuedFor:  queuedFor,
	}
}

// SessionProgressEvent is emitted whenever a suite reaches a final status.
type SessionProgressEvent struct {
	baseEvent
	SessionID  string
	Total      int
	Completed  int
	Passed     int
	Failed     int
	Skipped    int
	Percentage float64
}

// NewSessionProgressEvent creates a SessionProgressEvent.
func NewSessionProgressEvent(sessionID string, total, completed, passed, failed, skipped int, percentage float64) SessionProgressEvent {
	return SessionProgressEvent{
		baseEvent:  newBaseEvent(TypeSessionProgress),
		SessionID:  sessionID,
		Total:      total,
		Completed:  completed,
		Passed:     passed,
		Failed:     failed,
		Skipped:    skipped,
		Percentage: percentage,
	}
}

// SessionCompletedEvent is emitted once a session has been finalized,
// whatever its terminal status.
type SessionCompletedEvent struct {
	baseEvent
	SessionID   string
	Status      string
	SuccessRate float64
	Duration    time.Duration
	Throughput  float64 // suites per minute
}

// NewSessionCompletedEvent creates a SessionCompletedEvent.
func NewSessionCompletedEvent(sessionID, status string, successRate float64, duration time.Duration, throughput float64) SessionCompletedEvent {
	return SessionCompletedEvent{
		baseEvent:   newBaseEvent(TypeSessionCompleted),
		SessionID:   sessionID,
		Status:      status,
		SuccessRate: successRate,
		Duration:    duration,
		Throughput:  throughput,
	}
}

// SessionFailedEvent is emitted when a session ends in the failed state.
type SessionFailedEvent struct {
	baseEvent
	SessionID string
	Category  string
	Reason    string
}

// NewSessionFailedEvent creates a SessionFailedEvent.
func NewSessionFailedEvent(sessionID, category, reason string) SessionFailedEvent {
	return SessionFailedEvent{
		baseEvent: newBaseEvent(TypeSessionFailed),
		SessionID: sessionID,
		Category:  category,
		Reason:    reason,
	}
}

// SessionCancelledEvent is emitted when a session is stopped by request.
type SessionCancelledEvent struct {
	baseEvent
	SessionID string
	Reason    string
}

// NewSessionCancelledEvent creates a SessionCancelledEvent.
func NewSessionCancelledEvent(sessionID, reason string) SessionCancelledEvent {
	return SessionCancelledEvent{
		baseEvent: newBaseEvent(TypeSessionCancelled),
		SessionID: sessionID,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Execution Events
// -----------------------------------------------------------------------------

// PhaseStartedEvent is emitted before a phase fans out its suites.
type PhaseStartedEvent struct {
	baseEvent
	SessionID  string
	PhaseID    string
	PhaseName  string
	SuiteCount int
}

// NewPhaseStartedEvent creates a PhaseStartedEvent.
func NewPhaseStartedEvent(sessionID, phaseID, phaseName string, suiteCount int) PhaseStartedEvent {
	return PhaseStartedEvent{
		baseEvent:  newBaseEvent(TypePhaseStarted),
		SessionID:  sessionID,
		PhaseID:    phaseID,
		PhaseName:  phaseName,
		SuiteCount: suiteCount,
	}
}

// PhaseCompletedEvent is emitted once every suite in a phase has settled.
type PhaseCompletedEvent struct {
	baseEvent
	SessionID string
	PhaseID   string
	Duration  time.Duration
}

// NewPhaseCompletedEvent creates a PhaseCompletedEvent.
func NewPhaseCompletedEvent(sessionID, phaseID string, duration time.Duration) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		baseEvent: newBaseEvent(TypePhaseCompleted),
		SessionID: sessionID,
		PhaseID:   phaseID,
		Duration:  duration,
	}
}

// SuiteStartedEvent is emitted when a suite is handed to the runner.
type SuiteStartedEvent struct {
	baseEvent
	SessionID string
	PhaseID   string
	SuiteID   string
	SuiteName string
}

// NewSuiteStartedEvent creates a SuiteStartedEvent.
func NewSuiteStartedEvent(sessionID, phaseID, suiteID, suiteName string) SuiteStartedEvent {
	return SuiteStartedEvent{
		baseEvent: newBaseEvent(TypeSuiteStarted),
		SessionID: sessionID,
		PhaseID:   phaseID,
		SuiteID:   suiteID,
		SuiteName: suiteName,
	}
}

// SuiteCompletedEvent is emitted when a suite reaches a final status,
// including skipped and error.
type SuiteCompletedEvent struct {
	baseEvent
	SessionID   string
	PhaseID     string
	SuiteID     string
	Status      string
	Duration    time.Duration
	TestCount   int
	PassedTests int
}

// NewSuiteCompletedEvent creates a SuiteCompletedEvent.
func NewSuiteCompletedEvent(sessionID, phaseID, suiteID, status string, duration time.Duration, testCount, passedTests int) SuiteCompletedEvent {
	return SuiteCompletedEvent{
		baseEvent:   newBaseEvent(TypeSuiteCompleted),
		SessionID:   sessionID,
		PhaseID:     phaseID,
		SuiteID:     suiteID,
		Status:      status,
		Duration:    duration,
		TestCount:   testCount,
		PassedTests: passedTests,
	}
}

// -----------------------------------------------------------------------------
// Queue Events
// -----------------------------------------------------------------------------

// ItemEnqueuedEvent is emitted when a session's work item enters the queue.
type ItemEnqueuedEvent struct {
	baseEvent
	SessionID   string
	Priority    float64
	Position    int
	QueueLength int
}

// NewItemEnqueuedEvent creates an ItemEnqueuedEvent.
func NewItemEnqueuedEvent(sessionID string, priority float64, position, queueLength int) ItemEnqueuedEvent {
	return ItemEnqueuedEvent{
		baseEvent:   newBaseEvent(TypeItemEnqueued),
		SessionID:   sessionID,
		Priority:    priority,
		Position:    position,
		QueueLength: queueLength,
	}
}

// ItemRequeuedEvent is emitted when an item is put back with decayed priority.
type ItemRequeuedEvent struct {
	baseEvent
	SessionID  string
	Priority   float64
	RetryCount int
	Reason     string
}

// NewItemRequeuedEvent creates an ItemRequeuedEvent.
func NewItemRequeuedEvent(sessionID string, priority float64, retryCount int, reason string) ItemRequeuedEvent {
	return ItemRequeuedEvent{
		baseEvent:  newBaseEvent(TypeItemRequeued),
		SessionID:  sessionID,
		Priority:   priority,
		RetryCount: retryCount,
		Reason:     reason,
	}
}

// ItemFailedEvent is emitted when an item exhausts its retries and is dropped.
type ItemFailedEvent struct {
	baseEvent
	SessionID  string
	RetryCount int
	Reason     string
}

// NewItemFailedEvent creates an ItemFailedEvent.
func NewItemFailedEvent(sessionID string, retryCount int, reason string) ItemFailedEvent {
	return ItemFailedEvent{
		baseEvent:  newBaseEvent(TypeItemFailed),
		SessionID:  sessionID,
		RetryCount: retryCount,
		Reason:     reason,
	}
}

// QueueUpdatedEvent carries a queue metrics snapshot after any mutation.
type QueueUpdatedEvent struct {
	baseEvent
	Length            int
	Capacity          int
	AverageWait       time.Duration
	OldestWait        time.Duration
	ThroughputPerHour int
	TotalEnqueued     int
	TotalDequeued     int
	TotalFailed       int
}

// NewQueueUpdatedEvent creates a QueueUpdatedEvent.
func NewQueueUpdatedEvent(length, capacity int, averageWait, oldestWait time.Duration, throughputPerHour, totalEnqueued, totalDequeued, totalFailed int) QueueUpdatedEvent {
	return QueueUpdatedEvent{
		baseEvent:         newBaseEvent(TypeQueueUpdated),
		Length:            length,
		Capacity:          capacity,
		AverageWait:       averageWait,
		OldestWait:        oldestWait,
		ThroughputPerHour: throughputPerHour,
		TotalEnqueued:     totalEnqueued,
		TotalDequeued:     totalDequeued,
		TotalFailed:       totalFailed,
	}
}

// -----------------------------------------------------------------------------
// Resource Pool Events
// -----------------------------------------------------------------------------

// ResourcesReservedEvent is emitted after a successful reservation.
type ResourcesReservedEvent struct {
	baseEvent
	SessionID   string
	Resources   Dimensions
	Utilization float64
}

// NewResourcesReservedEvent creates a ResourcesReservedEvent.
func NewResourcesReservedEvent(sessionID string, resources Dimensions, utilization float64) ResourcesReservedEvent {
	return ResourcesReservedEvent{
		baseEvent:   newBaseEvent(TypeResourcesReserved),
		SessionID:   sessionID,
		Resources:   resources,
		Utilization: utilization,
	}
}

// ResourcesReleasedEvent is emitted after an allocation is released.
type ResourcesReleasedEvent struct {
	baseEvent
	SessionID   string
	Resources   Dimensions
	Utilization float64
}

// NewResourcesReleasedEvent creates a ResourcesReleasedEvent.
func NewResourcesReleasedEvent(sessionID string, resources Dimensions, utilization float64) ResourcesReleasedEvent {
	return ResourcesReleasedEvent{
		baseEvent:   newBaseEvent(TypeResourcesReleased),
		SessionID:   sessionID,
		Resources:   resources,
		Utilization: utilization,
	}
}

// ResourcePressureEvent is emitted by the sampler when composite
// utilization crosses the pressure threshold.
type ResourcePressureEvent struct {
	baseEvent
	Utilization     float64
	Bottlenecks     []string
	Recommendations []string
}

// NewResourcePressureEvent creates a ResourcePressureEvent.
func NewResourcePressureEvent(utilization float64, bottlenecks, recommendations []string) ResourcePressureEvent {
	return ResourcePressureEvent{
		baseEvent:       newBaseEvent(TypeResourcePressure),
		Utilization:     utilization,
		Bottlenecks:     bottlenecks,
		Recommendations: recommendations,
	}
}

// MetricsRecordedEvent is emitted for every utilization sample.
type MetricsRecordedEvent struct {
	baseEvent
	Total       Dimensions
	Used        Dimensions
	Utilization float64
	Efficiency  float64
}

// NewMetricsRecordedEvent creates a MetricsRecordedEvent.
func NewMetricsRecordedEvent(total, used Dimensions, utilization, efficiency float64) MetricsRecordedEvent {
	return MetricsRecordedEvent{
		baseEvent:   newBaseEvent(TypeMetricsRecorded),
		Total:       total,
		Used:        used,
		Utilization: utilization,
		Efficiency:  efficiency,
	}
}

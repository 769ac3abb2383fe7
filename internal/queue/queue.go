package queue

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/logging"
)

const (
	// requeuePenalty is subtracted from an item's priority on every requeue.
	requeuePenalty = 10.0

	// agingStep earns agingBonus priority points per step waited.
	agingStep  = 5 * time.Minute
	agingBonus = 5.0

	// optimize comparator thresholds
	priorityGap = 10.0
	waitGap     = 5 * time.Minute

	// health thresholds
	occupancyWarning   = 80.0
	occupancyCritical  = 100.0
	waitWarning        = 30 * time.Minute
	waitCritical       = time.Hour
	minThroughput      = 5
	starvationDuration = 2 * time.Hour

	throughputWindow = time.Hour
)

// Queue is a bounded priority queue of sessions. All methods are safe for
// concurrent use.
type Queue struct {
	maxSize          int
	maxRetries       int
	weights          map[string]float64
	optimizeInterval time.Duration
	bus              *event.Bus
	logger           *logging.Logger
	clock            func() time.Time

	mu            sync.Mutex
	items         []*Item
	dequeues      []time.Time // dequeue times within the throughput window
	totalEnqueued int
	totalDequeued int
	totalRequeued int
	totalFailed   int

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// New creates a queue.
func New(opts ...Option) *Queue {
	cfg := &config{
		maxSize:          DefaultMaxSize,
		maxRetries:       DefaultMaxRetries,
		weights:          DefaultPriorityWeights(),
		optimizeInterval: DefaultOptimizeInterval,
		logger:           logging.NopLogger(),
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Queue{
		maxSize:          cfg.maxSize,
		maxRetries:       cfg.maxRetries,
		weights:          cfg.weights,
		optimizeInterval: cfg.optimizeInterval,
		bus:              cfg.bus,
		logger:           cfg.logger.WithComponent("queue"),
		clock:            cfg.clock,
	}
}

// Capacity returns the maximum number of items.
func (q *Queue) Capacity() int {
	return q.maxSize
}

// Weight returns the priority weight for an environment.
func (q *Queue) Weight(environment string) float64 {
	if w, ok := q.weights[environment]; ok {
		return w
	}
	return defaultWeight
}

// Enqueue inserts a copy of item in priority order. It fails with
// ErrQueueFull when the queue is at capacity. Zero QueuedAt, BasePriority
// and MaxRetries are filled in from the clock, Priority and the queue
// default.
func (q *Queue) Enqueue(item *Item) error {
	if item == nil || item.SessionID == "" {
		return errors.NewValidationError("queue item requires a session id").WithField("session_id")
	}
	cp := *item

	q.mu.Lock()
	if len(q.items) >= q.maxSize {
		q.mu.Unlock()
		return fmt.Errorf("%w: capacity %d", errors.ErrQueueFull, q.maxSize)
	}
	now := q.clock()
	if cp.QueuedAt.IsZero() {
		cp.QueuedAt = now
	}
	if cp.FirstQueuedAt.IsZero() {
		cp.FirstQueuedAt = cp.QueuedAt
	}
	if cp.BasePriority == 0 {
		cp.BasePriority = cp.Priority
	}
	if cp.MaxRetries <= 0 {
		cp.MaxRetries = q.maxRetries
	}
	pos := q.insertLocked(&cp)
	q.totalEnqueued++
	length := len(q.items)
	metrics := q.metricsLocked(now)
	q.mu.Unlock()

	q.logger.Info("item enqueued",
		"session_id", cp.SessionID,
		"priority", cp.Priority,
		"position", pos,
		"queue_length", length)
	q.publish(event.NewItemEnqueuedEvent(cp.SessionID, cp.Priority, pos, length))
	q.publishMetrics(metrics)
	return nil
}

// Dequeue removes and returns the head item, or nil when empty.
func (q *Queue) Dequeue() *Item {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	now := q.clock()
	q.totalDequeued++
	q.dequeues = append(q.dequeues, now)
	metrics := q.metricsLocked(now)
	q.mu.Unlock()

	q.publishMetrics(metrics)
	return item
}

// Peek returns a copy of the head item, or nil when empty.
func (q *Queue) Peek() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	cp := *q.items[0]
	return &cp
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns copies of the queued items in order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	for i, it := range q.items {
		out[i] = *it
	}
	return out
}

// Position returns the zero-based position of sessionID, or -1.
func (q *Queue) Position(sessionID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(sessionID)
}

// Remove drops the item for sessionID. It returns false when the session
// is not queued.
func (q *Queue) Remove(sessionID string) bool {
	q.mu.Lock()
	i := q.indexLocked(sessionID)
	if i < 0 {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	metrics := q.metricsLocked(q.clock())
	q.mu.Unlock()

	q.logger.Info("item removed", "session_id", sessionID)
	q.publishMetrics(metrics)
	return true
}

// Requeue puts item back after a failed dispatch attempt. When the item has
// used all of its retries it is dropped, queue.item_failed is published and
// the returned error wraps ErrRetriesExhausted. Otherwise its retry count
// grows by one, its priority drops by 10, its wait clock restarts, and it
// is reinserted in priority order.
func (q *Queue) Requeue(item *Item, reason string) (bool, error) {
	if item == nil || item.SessionID == "" {
		return false, errors.NewValidationError("queue item requires a session id").WithField("session_id")
	}

	if item.RetryCount >= item.MaxRetries {
		q.mu.Lock()
		if i := q.indexLocked(item.SessionID); i >= 0 {
			q.items = append(q.items[:i], q.items[i+1:]...)
		}
		q.totalFailed++
		metrics := q.metricsLocked(q.clock())
		q.mu.Unlock()

		q.logger.Warn("item dropped after exhausting retries",
			"session_id", item.SessionID,
			"retries", item.RetryCount,
			"reason", reason)
		q.publish(event.NewItemFailedEvent(item.SessionID, item.RetryCount, reason))
		q.publishMetrics(metrics)
		return false, fmt.Errorf("%w: session %s after %d retries: %s", errors.ErrRetriesExhausted, item.SessionID, item.RetryCount, reason)
	}

	cp := *item
	q.mu.Lock()
	if i := q.indexLocked(cp.SessionID); i >= 0 {
		q.items = append(q.items[:i], q.items[i+1:]...)
	}
	if len(q.items) >= q.maxSize {
		q.mu.Unlock()
		return false, fmt.Errorf("%w: capacity %d", errors.ErrQueueFull, q.maxSize)
	}
	now := q.clock()
	cp.RetryCount++
	cp.Priority -= requeuePenalty
	cp.QueuedAt = now
	cp.LastReason = reason
	q.insertLocked(&cp)
	q.totalRequeued++
	metrics := q.metricsLocked(now)
	q.mu.Unlock()

	// Mirror the bookkeeping on the caller's copy.
	*item = cp

	q.logger.Info("item requeued",
		"session_id", cp.SessionID,
		"priority", cp.Priority,
		"retry", cp.RetryCount,
		"reason", reason)
	q.publish(event.NewItemRequeuedEvent(cp.SessionID, cp.Priority, cp.RetryCount, reason))
	q.publishMetrics(metrics)
	return true, nil
}

// Optimize re-sorts the queue by several keys: a priority gap above 10
// decides first, then a wait-time gap above 5 minutes (longer wait first),
// then shorter estimated duration.
func (q *Queue) Optimize() {
	q.mu.Lock()
	now := q.clock()
	sort.SliceStable(q.items, func(i, j int) bool {
		a, b := q.items[i], q.items[j]
		if math.Abs(a.Priority-b.Priority) > priorityGap {
			return a.Priority > b.Priority
		}
		wa, wb := now.Sub(a.QueuedAt), now.Sub(b.QueuedAt)
		if d := wa - wb; d > waitGap || d < -waitGap {
			return wa > wb
		}
		return a.EstimatedDuration < b.EstimatedDuration
	})
	metrics := q.metricsLocked(now)
	q.mu.Unlock()

	q.publishMetrics(metrics)
}

// RecalculatePriorities recomputes every item's dynamic priority from its
// base priority, time waited, environment weight and retries, then sorts
// by the new priorities.
func (q *Queue) RecalculatePriorities() {
	q.mu.Lock()
	now := q.clock()
	for _, it := range q.items {
		it.Priority = q.dynamicPriority(it, now)
	}
	sort.SliceStable(q.items, func(i, j int) bool {
		return q.items[i].Priority > q.items[j].Priority
	})
	metrics := q.metricsLocked(now)
	q.mu.Unlock()

	q.publishMetrics(metrics)
}

func (q *Queue) dynamicPriority(it *Item, now time.Time) float64 {
	steps := math.Floor(float64(now.Sub(it.QueuedAt)) / float64(agingStep))
	aging := math.Max(steps, 0) * agingBonus
	return (it.BasePriority+aging)*q.Weight(it.Environment)/100 - float64(it.RetryCount)*requeuePenalty
}

// Metrics returns a snapshot of the queue.
func (q *Queue) Metrics() Metrics {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.metricsLocked(q.clock())
}

// Health classifies the queue from occupancy, wait times, throughput and
// starving items, and lists each issue with a recommendation.
func (q *Queue) Health() Health {
	q.mu.Lock()
	now := q.clock()
	m := q.metricsLocked(now)
	starving := 0
	for _, it := range q.items {
		if now.Sub(it.QueuedAt) > starvationDuration {
			starving++
		}
	}
	q.mu.Unlock()

	h := Health{Status: HealthHealthy, Metrics: m}
	flag := func(status HealthStatus, issue, recommendation string) {
		if status.severity() > h.Status.severity() {
			h.Status = status
		}
		h.Issues = append(h.Issues, issue)
		h.Recommendations = append(h.Recommendations, recommendation)
	}

	switch {
	case m.Occupancy >= occupancyCritical:
		flag(HealthCritical, fmt.Sprintf("queue is full (%d/%d)", m.Length, m.Capacity),
			"raise the queue size or the number of concurrent sessions")
	case m.Occupancy > occupancyWarning:
		flag(HealthWarning, fmt.Sprintf("queue is %.0f%% full", m.Occupancy),
			"consider raising the number of concurrent sessions")
	}

	switch {
	case m.AverageWait > waitCritical:
		flag(HealthCritical, fmt.Sprintf("average wait is %s", m.AverageWait.Round(time.Second)),
			"add capacity or cancel low-priority sessions")
	case m.AverageWait > waitWarning:
		flag(HealthWarning, fmt.Sprintf("average wait is %s", m.AverageWait.Round(time.Second)),
			"review resource limits; sessions may be blocked on capacity")
	}

	if m.Length > 0 && m.ThroughputPerHour < minThroughput {
		flag(HealthWarning, fmt.Sprintf("throughput is %d sessions per hour", m.ThroughputPerHour),
			"check for sessions stuck on resources or a stalled dispatcher")
	}

	if starving > 0 {
		flag(HealthCritical, fmt.Sprintf("%d item(s) waiting more than %s", starving, starvationDuration),
			"raise the priority of long-waiting sessions or reduce competing load")
	}
	return h
}

// Start launches the periodic optimizer. It returns immediately; call Stop
// to shut it down.
func (q *Queue) Start(ctx context.Context) error {
	q.lifecycleMu.Lock()
	defer q.lifecycleMu.Unlock()

	if q.started {
		return fmt.Errorf("queue: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.started = true

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.optimizeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.RecalculatePriorities()
				q.Optimize()
			}
		}
	}()
	return nil
}

// Stop halts the optimizer and waits for it to exit. It is safe to call
// multiple times.
func (q *Queue) Stop() {
	q.lifecycleMu.Lock()
	if !q.started {
		q.lifecycleMu.Unlock()
		return
	}
	q.cancel()
	q.lifecycleMu.Unlock()

	q.wg.Wait()

	q.lifecycleMu.Lock()
	q.started = false
	q.lifecycleMu.Unlock()
}

// insertLocked places item before the first item with strictly lower
// priority and returns its position. Caller must hold q.mu.
func (q *Queue) insertLocked(item *Item) int {
	for i, existing := range q.items {
		if existing.Priority < item.Priority {
			q.items = append(q.items, nil)
			copy(q.items[i+1:], q.items[i:])
			q.items[i] = item
			return i
		}
	}
	q.items = append(q.items, item)
	return len(q.items) - 1
}

// indexLocked returns the position of sessionID or -1. Caller must hold q.mu.
func (q *Queue) indexLocked(sessionID string) int {
	for i, it := range q.items {
		if it.SessionID == sessionID {
			return i
		}
	}
	return -1
}

// metricsLocked builds a snapshot. Caller must hold q.mu.
func (q *Queue) metricsLocked(now time.Time) Metrics {
	cutoff := now.Add(-throughputWindow)
	keep := 0
	for keep < len(q.dequeues) && q.dequeues[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		q.dequeues = append([]time.Time(nil), q.dequeues[keep:]...)
	}

	m := Metrics{
		Length:            len(q.items),
		Capacity:          q.maxSize,
		ThroughputPerHour: len(q.dequeues),
		TotalEnqueued:     q.totalEnqueued,
		TotalDequeued:     q.totalDequeued,
		TotalRequeued:     q.totalRequeued,
		TotalFailed:       q.totalFailed,
	}
	if q.maxSize > 0 {
		m.Occupancy = float64(len(q.items)) / float64(q.maxSize) * 100
	}
	if len(q.items) == 0 {
		return m
	}

	m.ByEnvironment = make(map[string]int)
	var total time.Duration
	for _, it := range q.items {
		wait := now.Sub(it.QueuedAt)
		total += wait
		m.OldestWait = max(m.OldestWait, wait)
		m.ByEnvironment[it.Environment]++
	}
	m.AverageWait = total / time.Duration(len(q.items))
	return m
}

func (q *Queue) publish(e event.Event) {
	if q.bus != nil {
		q.bus.Publish(e)
	}
}

func (q *Queue) publishMetrics(m Metrics) {
	q.publish(event.NewQueueUpdatedEvent(
		m.Length, m.Capacity, m.AverageWait, m.OldestWait,
		m.ThroughputPerHour, m.TotalEnqueued, m.TotalDequeued, m.TotalFailed,
	))
}

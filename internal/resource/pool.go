package resource

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

// Allocation is a named claim on a slice of the pool.
type Allocation struct {
	SessionID   string       `json:"session_id"`
	AllocatedAt time.Time    `json:"allocated_at"`
	Resources   Requirements `json:"resources"`
}

// Sample is one utilization measurement.
type Sample struct {
	At          time.Time    `json:"at"`
	Total       Requirements `json:"total"`
	Used        Requirements `json:"used"`
	Utilization float64      `json:"utilization"`
	Efficiency  float64      `json:"efficiency"`
}

// Pool tracks a fixed multi-dimensional capacity and the allocations held
// against it. All mutations happen under a single mutex, so Reserve is an
// atomic compare-and-reserve.
type Pool struct {
	bus    *event.Bus
	logger *logging.Logger
	clock  func() time.Time

	sampleInterval    time.Duration
	historyWindow     time.Duration
	maxSamples        int
	pressureThreshold float64

	mu          sync.Mutex
	limits      Requirements
	allocations map[string]Allocation
	history     []Sample

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewPool creates a pool. Without WithLimits the capacity comes from
// DefaultLimits.
func NewPool(opts ...Option) *Pool {
	cfg := &config{
		limits:            DefaultLimits(),
		logger:            logging.NopLogger(),
		sampleInterval:    defaultSampleInterval,
		historyWindow:     defaultHistoryWindow,
		maxSamples:        defaultMaxSamples,
		pressureThreshold: defaultPressureThreshold,
		clock:             time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.sampleInterval <= 0 {
		cfg.sampleInterval = defaultSampleInterval
	}
	if cfg.historyWindow <= 0 {
		cfg.historyWindow = defaultHistoryWindow
	}
	if cfg.maxSamples <= 0 {
		cfg.maxSamples = defaultMaxSamples
	}
	if cfg.pressureThreshold <= 0 {
		cfg.pressureThreshold = defaultPressureThreshold
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	return &Pool{
		bus:               cfg.bus,
		logger:            cfg.logger.WithComponent("resource-pool"),
		clock:             cfg.clock,
		sampleInterval:    cfg.sampleInterval,
		historyWindow:     cfg.historyWindow,
		maxSamples:        cfg.maxSamples,
		pressureThreshold: cfg.pressureThreshold,
		limits:            cfg.limits,
		allocations:       make(map[string]Allocation),
	}
}

// Reserve claims req for sessionID. An existing allocation for the same
// session is replaced, not stacked, and is not counted against the new
// request. When any dimension of req exceeds what is available the call
// fails with a *errors.ResourceError listing every short dimension.
func (p *Pool) Reserve(sessionID string, req Requirements) (*Allocation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	used := p.usedLocked(sessionID)
	available := p.limits.Sub(used)
	if shortfalls := req.Shortfalls(available); len(shortfalls) > 0 {
		p.mu.Unlock()
		err := errors.NewResourceError("reservation failed", errors.ErrInsufficientResources).
			WithSessionID(sessionID)
		for _, s := range shortfalls {
			err.WithShortfall(s.Dimension, s.Requested, s.Available)
		}
		p.logger.Debug("reservation rejected", "session_id", sessionID, "error", err)
		return nil, err
	}

	alloc := Allocation{SessionID: sessionID, AllocatedAt: p.clock(), Resources: req}
	p.allocations[sessionID] = alloc
	util := p.utilizationLocked()
	p.mu.Unlock()

	p.logger.Info("resources reserved", "session_id", sessionID, "utilization", util)
	p.publish(event.NewResourcesReservedEvent(sessionID, req.Map(), util))
	return &alloc, nil
}

// Release drops the allocation held by sessionID. Releasing an unknown
// session is a no-op and returns false.
func (p *Pool) Release(sessionID string) bool {
	p.mu.Lock()
	alloc, ok := p.allocations[sessionID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.allocations, sessionID)
	util := p.utilizationLocked()
	p.mu.Unlock()

	p.logger.Info("resources released", "session_id", sessionID, "utilization", util)
	p.publish(event.NewResourcesReleasedEvent(sessionID, alloc.Resources.Map(), util))
	return true
}

// CanSatisfy reports, without reserving, whether req currently fits in the
// free capacity. It returns nil when it does.
func (p *Pool) CanSatisfy(req Requirements) error {
	if err := req.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	available := p.limits.Sub(p.usedLocked(""))
	p.mu.Unlock()

	shortfalls := req.Shortfalls(available)
	if len(shortfalls) == 0 {
		return nil
	}
	err := errors.NewResourceError("insufficient headroom", errors.ErrInsufficientResources)
	for _, s := range shortfalls {
		err.WithShortfall(s.Dimension, s.Requested, s.Available)
	}
	return err
}

// UpdateLimits replaces the capacity. Zero dimensions in update keep their
// current value. The change is rejected, leaving the old limits in place,
// when current usage would not fit under the new limits.
func (p *Pool) UpdateLimits(update Requirements) error {
	if err := update.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	next := p.limits
	if update.MemoryMB != 0 {
		next.MemoryMB = update.MemoryMB
	}
	if update.CPUPercent != 0 {
		next.CPUPercent = update.CPUPercent
	}
	if update.NetworkMbps != 0 {
		next.NetworkMbps = update.NetworkMbps
	}
	if update.StorageMB != 0 {
		next.StorageMB = update.StorageMB
	}
	if update.ConcurrentUsers != 0 {
		next.ConcurrentUsers = update.ConcurrentUsers
	}

	used := p.usedLocked("")
	if shortfalls := used.Shortfalls(next); len(shortfalls) > 0 {
		p.mu.Unlock()
		err := errors.NewResourceError("limit update rejected", errors.ErrLimitsBelowUsage)
		for _, s := range shortfalls {
			// Requested is the current usage, Available the proposed limit.
			err.WithShortfall(s.Dimension, s.Requested, next.Get(s.Dimension))
		}
		return err
	}
	p.limits = next
	p.mu.Unlock()

	p.logger.Info("resource limits updated", "limits", next.Map())
	return nil
}

// Limits returns the configured capacity.
func (p *Pool) Limits() Requirements {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits
}

// Used returns the dimension-wise sum of all held allocations.
func (p *Pool) Used() Requirements {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usedLocked("")
}

// Available returns limits minus used.
func (p *Pool) Available() Requirements {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits.Sub(p.usedLocked(""))
}

// Allocation returns the allocation held by sessionID, if any.
func (p *Pool) Allocation(sessionID string) (Allocation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.allocations[sessionID]
	return a, ok
}

// Allocations returns every held allocation, oldest first.
func (p *Pool) Allocations() []Allocation {
	p.mu.Lock()
	out := make([]Allocation, 0, len(p.allocations))
	for _, a := range p.allocations {
		out = append(out, a)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AllocatedAt.Equal(out[j].AllocatedAt) {
			return out[i].AllocatedAt.Before(out[j].AllocatedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Utilization returns the weighted composite utilization percentage:
// 0.3 memory + 0.3 cpu + 0.2 network + 0.1 storage + 0.1 users, capped at 100.
func (p *Pool) Utilization() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.utilizationLocked()
}

// UtilizationBreakdown returns the utilization percentage of each dimension.
func (p *Pool) UtilizationBreakdown() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return breakdown(p.usedLocked(""), p.limits)
}

// History returns the retained samples, oldest first.
func (p *Pool) History() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Sample, len(p.history))
	copy(out, p.history)
	return out
}

// PredictAvailability reports whether req is expected to fit after horizon.
// Usage of each dimension is extrapolated linearly from the oldest and
// newest samples of the trailing hour. With fewer than two samples the
// current free capacity decides. The result is a yes/no decision, not a
// probability.
func (p *Pool) PredictAvailability(req Requirements, horizon time.Duration) bool {
	p.mu.Lock()
	limits := p.limits
	used := p.usedLocked("")
	now := p.clock()
	var window []Sample
	for _, s := range p.history {
		if now.Sub(s.At) <= predictionWindow {
			window = append(window, s)
		}
	}
	p.mu.Unlock()

	if len(window) < 2 {
		return req.Fits(limits.Sub(used))
	}

	first, last := window[0], window[len(window)-1]
	span := last.At.Sub(first.At).Seconds()
	if span <= 0 {
		return req.Fits(limits.Sub(used))
	}
	ahead := now.Add(horizon).Sub(last.At).Seconds()

	for _, d := range Dimensions {
		slope := (last.Used.Get(d) - first.Used.Get(d)) / span
		projected := math.Max(last.Used.Get(d)+slope*ahead, 0)
		if req.Get(d) > limits.Get(d)-projected {
			return false
		}
	}
	return true
}

// Start launches the sampler. It returns immediately; call Stop to shut
// it down.
func (p *Pool) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return fmt.Errorf("resource pool: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sampleLoop(ctx)
	}()
	return nil
}

// Stop cancels the sampler and waits for it to exit. It is safe to call
// multiple times.
func (p *Pool) Stop() {
	p.lifecycleMu.Lock()
	if !p.started {
		p.lifecycleMu.Unlock()
		return
	}
	p.cancel()
	p.lifecycleMu.Unlock()

	p.wg.Wait()

	p.lifecycleMu.Lock()
	p.started = false
	p.lifecycleMu.Unlock()
}

func (p *Pool) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(p.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RecordSample()
		}
	}
}

// RecordSample takes one utilization sample, appends it to the history and
// publishes resources.metrics_recorded. When composite utilization is above
// the pressure threshold it also publishes resources.pressure.
func (p *Pool) RecordSample() Sample {
	p.mu.Lock()
	now := p.clock()
	used := p.usedLocked("")
	dims := breakdown(used, p.limits)
	sample := Sample{
		At:          now,
		Total:       p.limits,
		Used:        used,
		Utilization: p.utilizationLocked(),
		Efficiency:  efficiency(dims),
	}
	p.history = append(p.history, sample)
	p.pruneLocked(now)
	p.mu.Unlock()

	p.publish(event.NewMetricsRecordedEvent(sample.Total.Map(), sample.Used.Map(), sample.Utilization, sample.Efficiency))

	if sample.Utilization > p.pressureThreshold {
		bottlenecks, recommendations := diagnose(dims)
		p.logger.Warn("resource pressure",
			"utilization", sample.Utilization,
			"bottlenecks", bottlenecks)
		p.publish(event.NewResourcePressureEvent(sample.Utilization, bottlenecks, recommendations))
	}
	return sample
}

// pruneLocked drops samples outside the history window and enforces the
// count cap. Caller must hold p.mu.
func (p *Pool) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.historyWindow)
	drop := 0
	for drop < len(p.history) && p.history[drop].At.Before(cutoff) {
		drop++
	}
	if excess := len(p.history) - drop - p.maxSamples; excess > 0 {
		drop += excess
	}
	if drop > 0 {
		p.history = append([]Sample(nil), p.history[drop:]...)
	}
}

// usedLocked sums every allocation except the one held by exclude.
// Caller must hold p.mu.
func (p *Pool) usedLocked(exclude string) Requirements {
	var used Requirements
	for id, a := range p.allocations {
		if id == exclude {
			continue
		}
		used = used.Plus(a.Resources)
	}
	return used
}

// utilizationLocked computes the composite utilization. Caller must hold p.mu.
func (p *Pool) utilizationLocked() float64 {
	dims := breakdown(p.usedLocked(""), p.limits)
	var total float64
	for _, d := range Dimensions {
		total += dims[d] * utilizationWeights[d]
	}
	return math.Min(total, 100)
}

func (p *Pool) publish(e event.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}

// breakdown returns per-dimension utilization percentages.
func breakdown(used, limits Requirements) map[string]float64 {
	out := make(map[string]float64, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = percent(used.Get(d), limits.Get(d))
	}
	return out
}

// efficiency measures how evenly load is spread across dimensions:
// 100 when every dimension is equally utilized, lower as the spread grows.
func efficiency(dims map[string]float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range Dimensions {
		v := math.Min(dims[d], 100)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return 100 - (hi - lo)
}

// diagnose names the dimensions above the bottleneck threshold and a
// recommendation for each.
func diagnose(dims map[string]float64) (bottlenecks, recommendations []string) {
	for _, d := range Dimensions {
		if dims[d] <= bottleneckThreshold {
			continue
		}
		bottlenecks = append(bottlenecks, d)
		recommendations = append(recommendations, recommendationFor(d, dims[d]))
	}
	return bottlenecks, recommendations
}

func recommendationFor(dimension string, pct float64) string {
	switch dimension {
	case DimensionMemory:
		return fmt.Sprintf("memory bottleneck (%.0f%%): consider raising memory limits or lowering suite memory estimates", pct)
	case DimensionCPU:
		return fmt.Sprintf("cpu bottleneck (%.0f%%): consider lowering concurrency levels or adding cores", pct)
	case DimensionNetwork:
		return fmt.Sprintf("network bottleneck (%.0f%%): consider staggering network-heavy suites", pct)
	case DimensionStorage:
		return fmt.Sprintf("storage bottleneck (%.0f%%): consider cleaning up test artifacts", pct)
	case DimensionUsers:
		return fmt.Sprintf("concurrent user bottleneck (%.0f%%): consider reducing simulated users per suite", pct)
	default:
		return fmt.Sprintf("%s bottleneck (%.0f%%)", dimension, pct)
	}
}

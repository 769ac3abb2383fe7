package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/logging"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/runner"
)

// Orchestrator owns every session and drives them from the queue through
// execution. All methods are safe for concurrent use.
type Orchestrator struct {
	queue            *queue.Queue
	pool             *resource.Pool
	runner           runner.Runner
	bus              *event.Bus
	logger           *logging.Logger
	clock            func() time.Time
	maxConcurrent    int
	maxRetained      int
	dispatchInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*model.TestSession
	active   map[string]context.CancelFunc
	finished []string // terminal session ids, oldest first

	wake chan struct{}

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	subIDs      []string
	started     bool
}

// New creates an Orchestrator. Missing collaborators get defaults: a new
// bus, a queue and pool publishing on it, and a simulated runner.
func New(opts ...Option) *Orchestrator {
	cfg := &config{
		maxConcurrent:    DefaultMaxConcurrentSessions,
		maxRetained:      DefaultMaxRetainedSessions,
		dispatchInterval: DefaultDispatchInterval,
		logger:           logging.NopLogger(),
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}
	if cfg.bus == nil {
		cfg.bus = event.NewBus(event.WithLogger(cfg.logger))
	}
	if cfg.queue == nil {
		cfg.queue = queue.New(queue.WithBus(cfg.bus), queue.WithLogger(cfg.logger))
	}
	if cfg.pool == nil {
		cfg.pool = resource.NewPool(resource.WithBus(cfg.bus), resource.WithLogger(cfg.logger))
	}
	if cfg.runner == nil {
		cfg.runner = runner.NewSimulated()
	}

	return &Orchestrator{
		queue:            cfg.queue,
		pool:             cfg.pool,
		runner:           cfg.runner,
		bus:              cfg.bus,
		logger:           cfg.logger.WithComponent("orchestrator"),
		clock:            cfg.clock,
		maxConcurrent:    cfg.maxConcurrent,
		maxRetained:      cfg.maxRetained,
		dispatchInterval: cfg.dispatchInterval,
		sessions:         make(map[string]*model.TestSession),
		active:           make(map[string]context.CancelFunc),
		wake:             make(chan struct{}, 1),
	}
}

// Bus returns the event bus sessions publish on.
func (o *Orchestrator) Bus() *event.Bus { return o.bus }

// Queue returns the session queue.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Pool returns the resource pool.
func (o *Orchestrator) Pool() *resource.Pool { return o.pool }

// Start launches the dispatcher together with the queue optimizer and the
// pool sampler. It returns immediately; call Stop to shut down.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if o.started {
		return fmt.Errorf("orchestrator: already started")
	}

	if err := o.queue.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator: start queue: %w", err)
	}
	if err := o.pool.Start(ctx); err != nil {
		o.queue.Stop()
		return fmt.Errorf("orchestrator: start pool: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	o.ctx = ctx
	o.cancel = cancel
	o.started = true

	// Wake the dispatcher when work arrives or capacity frees up.
	o.subIDs = []string{
		o.bus.Subscribe(event.TypeItemEnqueued, func(event.Event) { o.signal() }),
		o.bus.Subscribe(event.TypeResourcesReleased, func(event.Event) { o.signal() }),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.dispatchLoop(ctx)
	}()

	o.logger.Info("orchestrator started",
		"max_concurrent_sessions", o.maxConcurrent,
		"dispatch_interval", o.dispatchInterval)
	return nil
}

// Stop cancels the dispatcher and every running session, waits for them to
// wind down, then stops the queue and pool loops. Queued sessions stay
// pending. It is safe to call multiple times.
func (o *Orchestrator) Stop() {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if !o.started {
		return
	}
	o.cancel()
	o.wg.Wait()

	for _, id := range o.subIDs {
		o.bus.Unsubscribe(id)
	}
	o.subIDs = nil
	o.pool.Stop()
	o.queue.Stop()
	o.started = false
	o.logger.Info("orchestrator stopped")
}

func (o *Orchestrator) running() bool {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()
	return o.started
}

// signal wakes the dispatcher without blocking.
func (o *Orchestrator) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// GetSession returns a copy of the session.
func (o *Orchestrator) GetSession(id string) (*model.TestSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
	}
	return sess.Clone(), nil
}

// ListSessions returns copies of every retained session, oldest first.
func (o *Orchestrator) ListSessions() []*model.TestSession {
	o.mu.Lock()
	out := make([]*model.TestSession, 0, len(o.sessions))
	for _, sess := range o.sessions {
		out = append(out, sess.Clone())
	}
	o.mu.Unlock()

	sortSessions(out)
	return out
}

// ActiveSessions returns copies of the sessions currently holding
// resources, oldest first.
func (o *Orchestrator) ActiveSessions() []*model.TestSession {
	o.mu.Lock()
	out := make([]*model.TestSession, 0, len(o.active))
	for id := range o.active {
		if sess, ok := o.sessions[id]; ok {
			out = append(out, sess.Clone())
		}
	}
	o.mu.Unlock()

	sortSessions(out)
	return out
}

func sortSessions(sessions []*model.TestSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

// QueueHealth reports the queue's health.
func (o *Orchestrator) QueueHealth() queue.Health {
	return o.queue.Health()
}

// ResourceReport is a point-in-time view of the pool.
type ResourceReport struct {
	Utilization float64               `json:"utilization"`
	Breakdown   map[string]float64    `json:"breakdown"`
	Limits      resource.Requirements `json:"limits"`
	Used        resource.Requirements `json:"used"`
	Available   resource.Requirements `json:"available"`
	Allocations []resource.Allocation `json:"allocations"`
}

// ResourceUtilization reports pool usage.
func (o *Orchestrator) ResourceUtilization() ResourceReport {
	return ResourceReport{
		Utilization: o.pool.Utilization(),
		Breakdown:   o.pool.UtilizationBreakdown(),
		Limits:      o.pool.Limits(),
		Used:        o.pool.Used(),
		Available:   o.pool.Available(),
		Allocations: o.pool.Allocations(),
	}
}

// retireLocked records that id reached a terminal state and evicts the
// oldest finished sessions beyond the retention limit.
func (o *Orchestrator) retireLocked(id string) {
	o.finished = append(o.finished, id)
	for len(o.finished) > o.maxRetained {
		evict := o.finished[0]
		o.finished = o.finished[1:]
		delete(o.sessions, evict)
		o.logger.Debug("session evicted", "session_id", evict)
	}
}

func (o *Orchestrator) publish(e event.Event) {
	o.bus.Publish(e)
}

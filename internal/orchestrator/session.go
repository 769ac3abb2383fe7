package orchestrator

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resolver"
)

// environmentBase is the starting priority per environment tier.
var environmentBase = map[string]float64{
	model.EnvUrgent:      100,
	model.EnvProduction:  80,
	model.EnvStaging:     60,
	model.EnvDevelopment: 40,
	model.EnvTest:        40,
}

const defaultEnvironmentBase = 50

// Priority computes the enqueue priority for cfg. Urgent outranks
// production, which outranks staging, then development and test. Small configurations and
// low concurrency levels get a bonus so that quick sessions are not stuck
// behind large ones.
func Priority(cfg model.TestConfiguration) float64 {
	base, ok := environmentBase[cfg.Environment]
	if !ok {
		base = defaultEnvironmentBase
	}
	suites := float64(max(len(cfg.TestSuites), 1))
	concurrency := float64(max(cfg.ConcurrencyLevel, 1))
	return base + math.Round(50/suites) + math.Round(20/concurrency)
}

// StartTestSession plans cfg and queues it for execution.
//
// An invalid configuration is rejected without creating a session. Once a
// session exists, planning failures and a plan whose peak requirement does
// not fit in the pool's free capacity mark it failed; the failed session
// is returned together with the error. The capacity check is advisory:
// the reservation made when the session is dispatched is what admits it.
func (o *Orchestrator) StartTestSession(ctx context.Context, cfg model.TestConfiguration) (*model.TestSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !o.running() {
		return nil, errors.ErrOrchestratorStopped
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := o.clock()
	sess := &model.TestSession{
		ID:              uuid.NewString(),
		ConfigurationID: cfg.ID,
		Configuration:   cfg,
		Status:          model.SessionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	logger := o.logger.WithSession(sess.ID)

	plan, _, planErr := resolver.BuildPlan(sess.ID, cfg)
	phaseCount := 0
	if plan != nil {
		sess.Plan = plan
		sess.ResourceUsage.Requested = plan.Resources
		phaseCount = len(plan.Phases)
	}

	o.mu.Lock()
	o.sessions[sess.ID] = sess
	o.mu.Unlock()

	logger.Info("session created",
		"configuration_id", cfg.ID,
		"environment", cfg.Environment,
		"suites", len(cfg.TestSuites),
		"phases", phaseCount)
	o.publish(event.NewSessionCreatedEvent(sess.ID, cfg.ID, cfg.Environment, len(cfg.TestSuites), phaseCount))

	if planErr != nil {
		return o.rejectSession(sess.ID, planErr)
	}

	if err := o.pool.CanSatisfy(plan.Resources); err != nil {
		cfgErr := errors.NewConfigurationError("insufficient resources for plan", err).
			WithSessionID(sess.ID).
			WithConfigurationID(cfg.ID)
		return o.rejectSession(sess.ID, cfgErr)
	}

	item := &queue.Item{
		SessionID:         sess.ID,
		Plan:              plan,
		Priority:          Priority(cfg),
		Environment:       cfg.Environment,
		EstimatedDuration: plan.TotalEstimatedDuration,
		MaxRetries:        cfg.RetryAttempts,
	}
	if err := o.queue.Enqueue(item); err != nil {
		return o.rejectSession(sess.ID, err)
	}

	logger.Info("session queued", "priority", item.Priority, "risk", plan.Risk.Level)
	return o.GetSession(sess.ID)
}

// rejectSession fails a session that never reached the queue or never got
// past it, and returns it with err.
func (o *Orchestrator) rejectSession(id string, err error) (*model.TestSession, error) {
	sess := o.failPending(id, err)
	return sess, err
}

// failPending marks a pending session failed with err and returns a copy.
func (o *Orchestrator) failPending(id string, err error) *model.TestSession {
	now := o.clock()

	o.mu.Lock()
	sess, ok := o.sessions[id]
	if !ok || sess.Status.IsTerminal() {
		o.mu.Unlock()
		return nil
	}
	sess.Status = model.SessionFailed
	sess.Errors = append(sess.Errors, model.NewExecutionError(err, now))
	sess.UpdatedAt = now
	cp := sess.Clone()
	o.retireLocked(id)
	o.mu.Unlock()

	category := errors.CategoryOf(err)
	o.logger.WithSession(id).Warn("session failed before running", "category", category, "error", err)
	o.publish(event.NewSessionFailedEvent(id, string(category), err.Error()))
	return cp
}

// StopTestSession cancels a running session. Suites still running are
// marked skipped and the session's resources are released immediately;
// runner calls already in flight are allowed to return. Phases that have
// not started are never started. A session the dispatcher has admitted
// but not yet started counts as running.
func (o *Orchestrator) StopTestSession(id string) error {
	now := o.clock()

	o.mu.Lock()
	sess, ok := o.sessions[id]
	if !ok {
		o.mu.Unlock()
		return errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
	}
	_, admitted := o.active[id]
	if sess.Status != model.SessionRunning && !(admitted && sess.Status == model.SessionPending) {
		status := sess.Status
		o.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s", errors.ErrSessionNotRunning, id, status)
	}

	sess.Status = model.SessionCancelled
	for i := range sess.SuiteResults {
		r := &sess.SuiteResults[i]
		if r.Status == model.SuiteRunning {
			r.Status = model.SuiteSkipped
			r.EndTime = now
			r.Duration = now.Sub(r.StartTime)
		}
	}
	sess.RecountProgress()
	sess.ResourceUsage.ReleasedAt = now
	sess.UpdatedAt = now
	cancel := o.active[id]
	delete(o.active, id)
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.pool.Release(id)

	o.logger.WithSession(id).Info("session stopped")
	o.publish(event.NewSessionCancelledEvent(id, "stopped by request"))
	o.signal()
	return nil
}

// CancelQueuedSession withdraws a session that is still waiting in the
// queue and marks it cancelled.
func (o *Orchestrator) CancelQueuedSession(id string) error {
	o.mu.Lock()
	sess, ok := o.sessions[id]
	if !ok {
		o.mu.Unlock()
		return errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
	}
	if sess.Status != model.SessionPending {
		status := sess.Status
		o.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s", errors.ErrSessionNotQueued, id, status)
	}
	o.mu.Unlock()

	// The dispatcher may have dequeued it in the meantime.
	if !o.queue.Remove(id) {
		return fmt.Errorf("%w: session %s was already dispatched", errors.ErrSessionNotQueued, id)
	}

	now := o.clock()
	o.mu.Lock()
	sess.Status = model.SessionCancelled
	sess.UpdatedAt = now
	o.retireLocked(id)
	o.mu.Unlock()

	o.logger.WithSession(id).Info("queued session cancelled")
	o.publish(event.NewSessionCancelledEvent(id, "withdrawn from queue"))
	return nil
}

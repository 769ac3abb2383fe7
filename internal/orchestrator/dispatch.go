package orchestrator

import (
	"context"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// dispatchLoop admits queued sessions until ctx is cancelled. It runs a
// round whenever it is woken by an enqueue, a release or a finished
// session, and on every safety tick.
func (o *Orchestrator) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(o.dispatchInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		o.dispatchRound(ctx)

		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		case <-ticker.C:
		}
	}
}

// dispatchRound dequeues and admits sessions while there is a free slot.
// The round ends at the first session the pool cannot hold, so a requeued
// head is retried on the next wake rather than spun on.
func (o *Orchestrator) dispatchRound(ctx context.Context) {
	for ctx.Err() == nil {
		if o.activeCount() >= o.maxConcurrent {
			return
		}
		item := o.queue.Dequeue()
		if item == nil {
			return
		}
		if !o.admit(ctx, item) {
			return
		}
	}
}

func (o *Orchestrator) activeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// admit reserves resources for item and launches its session. It returns
// false when the round should stop because the item went back to the
// queue.
func (o *Orchestrator) admit(ctx context.Context, item *queue.Item) bool {
	logger := o.logger.WithSession(item.SessionID)

	o.mu.Lock()
	sess, ok := o.sessions[item.SessionID]
	pending := ok && sess.Status == model.SessionPending
	o.mu.Unlock()
	if !pending {
		logger.Debug("dropping dequeued item for session that is no longer pending")
		return true
	}

	alloc, err := o.pool.Reserve(item.SessionID, item.Plan.Resources)
	if err != nil {
		requeued, qerr := o.queue.Requeue(item, err.Error())
		if requeued {
			logger.Info("session requeued for resources",
				"retry", item.RetryCount,
				"priority", item.Priority,
				"reason", err)
			return false
		}

		resErr := errors.NewResourceError("session could not be admitted", qerr).
			WithSessionID(item.SessionID).
			WithSeverity(errors.SeverityCritical)
		var short *errors.ResourceError
		if errors.As(err, &short) {
			resErr.Shortfalls = append(resErr.Shortfalls, short.Shortfalls...)
		}
		o.failPending(item.SessionID, resErr)
		return true
	}

	o.launch(ctx, item, alloc)
	return true
}

// launch marks the session active and runs it on its own goroutine.
func (o *Orchestrator) launch(ctx context.Context, item *queue.Item, alloc *resource.Allocation) {
	sctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.active[item.SessionID] = cancel
	if sess, ok := o.sessions[item.SessionID]; ok {
		sess.ResourceUsage.Requested = alloc.Resources
		sess.ResourceUsage.AllocatedAt = alloc.AllocatedAt
	}
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.executeSession(ctx, sctx, item)
	}()
}

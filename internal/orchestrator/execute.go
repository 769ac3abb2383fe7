package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/event"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/semaphore"
)

// executeSession runs an admitted session to completion. runCtx is handed
// to the runner; sctx is cancelled when the session is stopped. No error
// escapes: failures are recorded on the session and reported via events.
func (o *Orchestrator) executeSession(runCtx, sctx context.Context, item *queue.Item) {
	id := item.SessionID
	logger := o.logger.WithSession(id)
	start := o.clock()

	o.mu.Lock()
	sess, ok := o.sessions[id]
	if !ok || sess.Status != model.SessionPending {
		// Stopped between admission and start.
		if ok && sess.Status == model.SessionCancelled {
			o.retireLocked(id)
		}
		o.mu.Unlock()
		o.release(id)
		return
	}
	sess.Status = model.SessionRunning
	sess.Metrics.StartTime = start
	sess.Metrics.QueuedFor = start.Sub(item.FirstQueuedAt)
	sess.SuiteResults = initialResults(sess.Configuration, item.Plan)
	sess.RecountProgress()
	sess.UpdatedAt = start
	info := sess.Info()
	queuedFor := sess.Metrics.QueuedFor
	o.mu.Unlock()

	logger.Info("session started", "phases", len(item.Plan.Phases), "queued_for", queuedFor)
	o.publish(event.NewSessionStartedEvent(id, len(item.Plan.Phases), queuedFor))

	var runErr error
	for _, phase := range item.Plan.Phases {
		if sctx.Err() != nil || !o.isRunning(id) {
			break
		}
		if err := o.executePhase(runCtx, sctx, info, phase); err != nil {
			runErr = err
			break
		}
	}

	if runErr != nil {
		logger.Error("session execution failed", "error", runErr)
		o.mu.Lock()
		sess.Errors = append(sess.Errors, model.NewExecutionError(runErr, o.clock()))
		if !sess.Status.IsTerminal() {
			sess.Status = model.SessionFailed
		}
		o.mu.Unlock()
	}

	o.release(id)
	o.finalizeSession(sctx, id)
	o.signal()
}

// initialResults builds one pending result per suite in plan order.
func initialResults(cfg model.TestConfiguration, plan *model.ExecutionPlan) []model.SuiteResult {
	byID := make(map[string]model.SuiteDescriptor, len(cfg.TestSuites))
	for _, s := range cfg.TestSuites {
		byID[s.ID] = s
	}

	results := make([]model.SuiteResult, 0, len(cfg.TestSuites))
	for _, phase := range plan.Phases {
		for _, suiteID := range phase.SuiteIDs {
			desc := byID[suiteID]
			results = append(results, model.SuiteResult{
				SuiteID:          suiteID,
				SuiteName:        desc.DisplayName(),
				PhaseID:          phase.ID,
				Status:           model.SuitePending,
				Dependencies:     append([]string(nil), desc.Dependencies...),
				DependencyStatus: model.DependencyWaiting,
				MaxRetries:       cfg.RetryAttempts,
			})
		}
	}
	return results
}

func (o *Orchestrator) isRunning(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[id]
	return ok && sess.Status == model.SessionRunning
}

// release frees the session's resources and its active slot. Both steps
// are idempotent since a stop may have done them already.
func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	delete(o.active, id)
	if sess, ok := o.sessions[id]; ok && sess.ResourceUsage.ReleasedAt.IsZero() {
		sess.ResourceUsage.ReleasedAt = o.clock()
	}
	o.mu.Unlock()

	o.pool.Release(id)
}

// executePhase fans the phase's suites out under a semaphore and returns
// once every suite has finished. A panic in any suite is returned as a
// critical execution error.
func (o *Orchestrator) executePhase(runCtx, sctx context.Context, info model.SessionInfo, phase model.Phase) error {
	logger := o.logger.WithSession(info.ID).WithPhase(phase.ID)
	start := o.clock()

	logger.Info("phase started", "name", phase.Name, "suites", len(phase.SuiteIDs))
	o.publish(event.NewPhaseStartedEvent(info.ID, phase.ID, phase.Name, len(phase.SuiteIDs)))

	sem := semaphore.New(min(phase.MaxConcurrency, len(phase.SuiteIDs)))
	var wg conc.WaitGroup
	for _, suiteID := range phase.SuiteIDs {
		wg.Go(func() {
			if err := sem.Acquire(sctx); err != nil {
				return
			}
			defer sem.Release()
			o.executeSuite(runCtx, sctx, info, phase.ID, suiteID)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		return errors.NewRunError("phase aborted by panic", r.AsError()).
			WithSessionID(info.ID).
			WithPhaseID(phase.ID).
			WithSeverity(errors.SeverityCritical)
	}

	duration := o.clock().Sub(start)
	logger.Info("phase completed", "duration", duration)
	o.publish(event.NewPhaseCompletedEvent(info.ID, phase.ID, duration))
	return nil
}

// executeSuite runs one suite. A suite whose dependency did not pass is
// skipped without counting as a failure. A runner error gives the suite
// the error status and records a high severity execution error.
func (o *Orchestrator) executeSuite(runCtx, sctx context.Context, info model.SessionInfo, phaseID, suiteID string) {
	if sctx.Err() != nil {
		return
	}
	logger := o.logger.WithSession(info.ID).WithSuite(suiteID)
	start := o.clock()

	o.mu.Lock()
	sess, ok := o.sessions[info.ID]
	if !ok || sess.Status != model.SessionRunning {
		o.mu.Unlock()
		return
	}
	res := sess.Result(suiteID)
	if res == nil {
		o.mu.Unlock()
		panic(fmt.Sprintf("suite %s missing from session %s", suiteID, info.ID))
	}

	if blocker := unmetDependency(sess, res); blocker != "" {
		res.Status = model.SuiteSkipped
		res.DependencyStatus = model.DependencyFailed
		res.StartTime = start
		res.EndTime = start
		sess.RecountProgress()
		sess.UpdatedAt = start
		progress := sess.Progress
		name := res.SuiteName
		o.mu.Unlock()

		logger.Info("suite skipped", "name", name, "failed_dependency", blocker)
		o.publish(event.NewSuiteCompletedEvent(info.ID, phaseID, suiteID, string(model.SuiteSkipped), 0, 0, 0))
		o.publishProgress(info.ID, progress)
		return
	}

	res.Status = model.SuiteRunning
	res.DependencyStatus = model.DependencySatisfied
	res.StartTime = start
	sess.RecountProgress()
	sess.UpdatedAt = start
	snapshot := *res
	snapshot.Dependencies = append([]string(nil), res.Dependencies...)
	o.mu.Unlock()

	logger.Info("suite started", "name", snapshot.SuiteName)
	o.publish(event.NewSuiteStartedEvent(info.ID, phaseID, suiteID, snapshot.SuiteName))

	results, err := o.runner.Run(runCtx, info, snapshot)
	end := o.clock()

	o.mu.Lock()
	status := res.Status
	// A stop may have moved the suite to skipped while the runner was busy.
	if status == model.SuiteRunning {
		switch {
		case err != nil && runCtx.Err() != nil:
			status = model.SuiteSkipped
		case err != nil:
			status = model.SuiteError
			runErr := errors.NewRunError("suite runner failed", err).
				WithSessionID(info.ID).
				WithPhaseID(phaseID).
				WithSuiteID(suiteID)
			sess.Errors = append(sess.Errors, model.NewExecutionError(runErr, end))
		case allPassed(results):
			status = model.SuitePassed
		default:
			status = model.SuiteFailed
		}
		res.Status = status
	}
	if err == nil {
		res.TestResults = results
	}
	res.EndTime = end
	res.Duration = end.Sub(start)
	res.Metrics = model.NewSuiteMetrics(res.TestResults)
	sess.RecountProgress()
	sess.UpdatedAt = end
	progress := sess.Progress
	metrics := res.Metrics
	o.mu.Unlock()

	if err != nil {
		logger.Warn("suite runner failed", "error", err, "status", status)
	} else {
		logger.Info("suite completed", "status", status, "duration", end.Sub(start), "tests", len(results))
	}
	o.publish(event.NewSuiteCompletedEvent(info.ID, phaseID, suiteID, string(status), end.Sub(start), metrics.TestCount, metrics.PassedTests))
	o.publishProgress(info.ID, progress)
}

// unmetDependency returns the first dependency of res that did not pass.
func unmetDependency(sess *model.TestSession, res *model.SuiteResult) string {
	for _, dep := range res.Dependencies {
		if d := sess.Result(dep); d == nil || d.Status != model.SuitePassed {
			return dep
		}
	}
	return ""
}

func allPassed(results []model.TestResult) bool {
	for _, r := range results {
		if r.Status != model.TestPassed {
			return false
		}
	}
	return true
}

func (o *Orchestrator) publishProgress(id string, p model.Progress) {
	o.publish(event.NewSessionProgressEvent(id, p.Total, p.Completed, p.Passed, p.Failed, p.Skipped, p.Percentage))
}

// finalizeSession settles unfinished suites, computes the session metrics
// and decides the final status unless the session already has one.
func (o *Orchestrator) finalizeSession(sctx context.Context, id string) {
	end := o.clock()

	o.mu.Lock()
	sess, ok := o.sessions[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	shutdown := false
	if sess.Status == model.SessionRunning && sctx.Err() != nil {
		sess.Status = model.SessionCancelled
		shutdown = true
	}
	for i := range sess.SuiteResults {
		r := &sess.SuiteResults[i]
		if !r.Status.IsFinal() {
			r.Status = model.SuiteSkipped
			if r.EndTime.IsZero() {
				r.EndTime = end
			}
		}
	}
	sess.RecountProgress()

	p := sess.Progress
	m := &sess.Metrics
	m.EndTime = end
	m.Duration = end.Sub(m.StartTime)
	if decided := p.Passed + p.Failed; decided > 0 {
		m.SuccessRate = float64(p.Passed) / float64(decided) * 100
	}
	var total, finished int
	var sum int64
	for _, r := range sess.SuiteResults {
		if r.Status == model.SuitePassed || r.Status == model.SuiteFailed || r.Status == model.SuiteError {
			sum += int64(r.Duration)
			finished++
		}
		total++
	}
	if finished > 0 {
		m.AverageSuiteDuration = time.Duration(sum / int64(finished))
	}
	if minutes := m.Duration.Minutes(); minutes > 0 {
		m.Throughput = float64(p.Completed) / minutes
	}

	if !sess.Status.IsTerminal() {
		if p.Failed > 0 {
			sess.Status = model.SessionFailed
		} else {
			sess.Status = model.SessionCompleted
		}
	}
	sess.UpdatedAt = end
	status := sess.Status
	var lastErr *model.ExecutionError
	if len(sess.Errors) > 0 {
		lastErr = &sess.Errors[len(sess.Errors)-1]
	}
	metrics := *m
	o.retireLocked(id)
	o.mu.Unlock()

	o.logger.WithSession(id).Info("session finished",
		"status", status,
		"suites", total,
		"passed", p.Passed,
		"failed", p.Failed,
		"skipped", p.Skipped,
		"success_rate", metrics.SuccessRate,
		"duration", metrics.Duration)

	if shutdown {
		o.publish(event.NewSessionCancelledEvent(id, "orchestrator stopped"))
	}
	if status == model.SessionFailed {
		category, reason := string(errors.CategoryExecution), fmt.Sprintf("%d of %d suites failed", p.Failed, p.Total)
		if lastErr != nil && lastErr.Severity == errors.SeverityCritical {
			category, reason = string(lastErr.Category), lastErr.Message
		}
		o.publish(event.NewSessionFailedEvent(id, category, reason))
	}
	o.publish(event.NewSessionCompletedEvent(id, string(status), metrics.SuccessRate, metrics.Duration, metrics.Throughput))
}

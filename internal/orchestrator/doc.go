// Package orchestrator runs test sessions end to end.
//
// StartTestSession validates a configuration, asks the resolver for an
// execution plan, checks the plan against the resource pool's free
// capacity and enqueues the session. A single dispatcher goroutine drains
// the queue while fewer than MaxConcurrentSessions sessions are active:
// it reserves each session's peak requirement (the only admission check
// that counts) and launches the session, or requeues it with decayed
// priority when the pool is short.
//
// A running session executes its phases strictly in plan order. Suites in
// a phase fan out under a semaphore sized to the phase's concurrency and
// the phase ends when every suite has finished. A suite whose dependency
// did not pass is skipped. Suite work is delegated to a [runner.Runner].
//
// Session state is owned by the Orchestrator. Callers receive deep copies.
//
// Lifecycle:
//
//	o := orchestrator.New(orchestrator.WithRunner(r), orchestrator.WithBus(bus))
//	o.Start(ctx)  // starts the dispatcher, queue optimizer and pool sampler
//	sess, err := o.StartTestSession(ctx, cfg)
//	// ... observe progress through bus events or GetSession ...
//	o.Stop()      // cancels running sessions and waits for them to finish
package orchestrator

// Package event provides the synchronous publish/subscribe registry through
// which the queue, the resource pool and the orchestrator report lifecycle
// changes to observers such as dashboards, metrics exporters and tests.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous dispatcher keyed by event type
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Session lifecycle: session.created, session.started, session.progress,
// session.completed, session.failed, session.cancelled.
//
// Execution: phase.started, phase.completed, suite.started, suite.completed.
//
// Queue diagnostics: queue.item_enqueued, queue.item_requeued,
// queue.item_failed, queue.updated.
//
// Pool diagnostics: resources.reserved, resources.released,
// resources.pressure, resources.metrics_recorded.
//
// # Delivery
//
// Handlers run on the publishing goroutine, in registration order, at the
// moment of publication. Handlers subscribed to a specific type run before
// wildcard handlers. No ordering is implied between different event types
// published from different goroutines. A panicking handler is logged and
// skipped; the remaining handlers still run.
//
// Publishers never hold their own locks while publishing, so handlers may
// call back into the publishing component.
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeSuiteCompleted, func(e event.Event) {
//	    done := e.(event.SuiteCompletedEvent)
//	    fmt.Println(done.SuiteID, done.Status)
//	})
package event

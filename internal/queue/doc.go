// Package queue holds sessions waiting to run, ordered by a mutable
// priority with aging, bounded retries and health diagnostics.
//
// Items are kept in descending priority order; an item is inserted before
// the first item with strictly lower priority, so equal priorities stay
// first-come first-served. Requeueing an item costs it 10 priority points
// and one retry; an item out of retries is dropped with queue.item_failed.
//
// A periodic optimizer (Start/Stop) recomputes each item's dynamic
// priority:
//
//	(base + ⌊wait/5m⌋·5) · envWeight/100 − retries·10
//
// Every mutation publishes queue.updated with a metrics snapshot.
package queue

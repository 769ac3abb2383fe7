// Package resource accounts for the shared test-execution capacity.
//
// A [Pool] holds a five-dimensional capacity (memory, cpu, network,
// storage, concurrent users) and the named [Allocation]s sessions hold
// against it. Reservations are all-or-nothing and atomic: a request either
// fits in every dimension and is recorded, or fails with a
// *errors.ResourceError that names each short dimension.
//
// An optional sampler (Start/Stop) records utilization into a rolling
// history, publishes resources.metrics_recorded, and raises
// resources.pressure with per-dimension recommendations when composite
// utilization crosses the pressure threshold.
package resource

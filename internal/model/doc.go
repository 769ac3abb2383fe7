// Package model holds the data types shared by the resolver, the queue and
// the orchestrator: suite descriptors and test configurations on the way
// in, execution plans in the middle, and sessions with their suite results
// on the way out.
package model

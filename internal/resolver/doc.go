// Package resolver turns a flat list of suite descriptors into a leveled
// dependency graph and then into concurrency- and resource-bounded
// execution phases.
//
// Typical use goes through BuildPlan, which runs cycle detection before
// leveling, groups each level into phases, orders suites inside each phase,
// computes the critical path and grades the plan's risk:
//
//	plan, graph, err := resolver.BuildPlan(sessionID, cfg)
//
// The individual steps (DetectCycles, BuildGraph, CreatePhases,
// OptimizeExecutionOrder, CriticalPath, ValidateExecutionOrder, AssessRisk)
// are exported for callers that need them separately.
package resolver

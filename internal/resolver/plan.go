package resolver

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// perUserFloor is the minimum reservation per unit of concurrency.
var perUserFloor = resource.Requirements{MemoryMB: 10, CPUPercent: 2}

// BuildPlan runs the full resolver pipeline for cfg: cycle detection,
// graph construction, phase grouping, in-phase ordering, critical path and
// risk. The plan's resource requirement is the peak across phases, floored
// by cfg.ConcurrencyLevel times a small per-user minimum.
func BuildPlan(sessionID string, cfg model.TestConfiguration) (*model.ExecutionPlan, *Graph, error) {
	if cycle := DetectCycles(cfg.TestSuites); cycle != nil {
		return nil, nil, errors.NewDependencyError("circular dependency", errors.ErrDependencyCycle).
			WithSuiteID(cycle[0]).
			WithCycle(cycle)
	}

	g, err := BuildGraph(cfg.TestSuites)
	if err != nil {
		return nil, nil, err
	}

	concurrency := max(cfg.ConcurrencyLevel, 1)
	phases := OptimizeExecutionOrder(CreatePhases(g, concurrency), g)

	var peak resource.Requirements
	var total time.Duration
	for _, ph := range phases {
		peak = peak.Max(ph.Resources)
		total += ph.EstimatedDuration
	}
	floor := resource.Requirements{
		MemoryMB:   perUserFloor.MemoryMB * float64(concurrency),
		CPUPercent: perUserFloor.CPUPercent * float64(concurrency),
	}

	path, pathDuration := CriticalPath(g)
	return &model.ExecutionPlan{
		SessionID:              sessionID,
		Phases:                 phases,
		TotalEstimatedDuration: total,
		Resources:              peak.Max(floor),
		Risk:                   AssessRisk(g, phases),
		CriticalPath:           path,
		CriticalPathDuration:   pathDuration,
		CreatedAt:              time.Now(),
	}, g, nil
}

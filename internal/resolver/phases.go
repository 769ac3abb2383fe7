package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// PhaseCeilings bounds the aggregate requirements of a single phase.
var PhaseCeilings = resource.Requirements{
	MemoryMB:        2000,
	CPUPercent:      80,
	NetworkMbps:     100,
	StorageMB:       1000,
	ConcurrentUsers: 100,
}

// CreatePhases groups each level's suites into phases. Within a level it
// repeatedly scans the remaining suites from the end, adding every suite
// that keeps the running aggregate under PhaseCeilings, until the phase
// holds maxConcurrency suites. When not even one suite fits, the first
// remaining suite gets a phase of its own (marked OverCeiling) so the plan
// always makes progress.
//
// Phase ids are "phase-<level>-<n>". PhaseDependencies lists the ids of the
// earlier phases holding the members' dependencies.
func CreatePhases(g *Graph, maxConcurrency int) []model.Phase {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	var phases []model.Phase
	phaseOf := make(map[string]string, g.Len())

	for level := 0; level <= g.MaxLevel; level++ {
		remaining := append([]string(nil), g.Levels[level]...)
		for n := 0; len(remaining) > 0; n++ {
			var members []string
			var agg resource.Requirements

			for i := len(remaining) - 1; i >= 0 && len(members) < maxConcurrency; i-- {
				candidate := agg.Add(g.Nodes[remaining[i]].Resources)
				if !candidate.Fits(PhaseCeilings) {
					continue
				}
				members = append(members, remaining[i])
				agg = candidate
				remaining = append(remaining[:i], remaining[i+1:]...)
			}

			overCeiling := false
			if len(members) == 0 {
				members = []string{remaining[0]}
				agg = g.Nodes[remaining[0]].Resources
				remaining = remaining[1:]
				overCeiling = true
			}
			// Members were picked back to front; restore declaration order.
			for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
				members[i], members[j] = members[j], members[i]
			}

			phase := model.Phase{
				ID:             fmt.Sprintf("phase-%d-%d", level, n),
				Name:           fmt.Sprintf("Level %d batch %d", level, n+1),
				Level:          level,
				SuiteIDs:       members,
				MaxConcurrency: min(maxConcurrency, len(members)),
				Resources:      agg,
				OverCeiling:    overCeiling,
			}

			inPhase := make(map[string]bool, len(members))
			for _, id := range members {
				inPhase[id] = true
			}
			seen := make(map[string]bool)
			for _, id := range members {
				node := g.Nodes[id]
				phase.EstimatedDuration = max(phase.EstimatedDuration, node.EstimatedDuration)
				for _, depID := range node.Dependencies {
					if inPhase[depID] {
						continue
					}
					if pid := phaseOf[depID]; pid != "" && !seen[pid] {
						seen[pid] = true
						phase.PhaseDependencies = append(phase.PhaseDependencies, pid)
					}
				}
			}
			for _, id := range members {
				phaseOf[id] = phase.ID
			}
			phases = append(phases, phase)
		}
	}
	return phases
}

// OptimizeExecutionOrder sorts the suites inside each phase: suites that
// unblock more dependents first, then longer suites first when estimates
// differ by more than a second, then lighter suites by weighted resource
// score. The input phases are not modified.
func OptimizeExecutionOrder(phases []model.Phase, g *Graph) []model.Phase {
	out := make([]model.Phase, len(phases))
	for i, ph := range phases {
		ids := append([]string(nil), ph.SuiteIDs...)
		sort.SliceStable(ids, func(a, b int) bool {
			na, nb := g.Nodes[ids[a]], g.Nodes[ids[b]]
			if na == nil || nb == nil {
				return false
			}
			if len(na.Dependents) != len(nb.Dependents) {
				return len(na.Dependents) > len(nb.Dependents)
			}
			if diff := na.EstimatedDuration - nb.EstimatedDuration; diff > time.Second || diff < -time.Second {
				return diff > 0
			}
			return na.Resources.Score() < nb.Resources.Score()
		})
		ph.SuiteIDs = ids
		ph.PhaseDependencies = append([]string(nil), ph.PhaseDependencies...)
		out[i] = ph
	}
	return out
}

// ValidateExecutionOrder replays phases in order and reports whether every
// suite runs only after all of its dependencies ran in an earlier phase.
// Suites unknown to the graph make the order invalid.
func ValidateExecutionOrder(phases []model.Phase, g *Graph) bool {
	executed := make(map[string]bool, g.Len())
	for _, ph := range phases {
		for _, id := range ph.SuiteIDs {
			node := g.Nodes[id]
			if node == nil {
				return false
			}
			for _, depID := range node.Dependencies {
				if !executed[depID] {
					return false
				}
			}
		}
		for _, id := range ph.SuiteIDs {
			executed[id] = true
		}
	}
	return true
}

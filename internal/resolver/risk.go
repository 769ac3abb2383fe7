package resolver

import (
	"fmt"
	"time"

	"github.com/suitepilot/suitepilot/internal/model"
)

const (
	deepGraphLevels      = 5
	longCriticalPath     = 30 * time.Minute
	largeSuiteCount      = 50
	gatekeeperDependents = 5

	highRiskScore   = 5
	mediumRiskScore = 2
)

// AssessRisk grades a plan from its shape: dependency depth, phases forced
// over the resource ceilings, critical path length, suite count and suites
// that gate many others.
func AssessRisk(g *Graph, phases []model.Phase) model.RiskAssessment {
	var r model.RiskAssessment

	if levels := g.MaxLevel + 1; levels > deepGraphLevels {
		r.Score += 2
		r.Factors = append(r.Factors, fmt.Sprintf("deep dependency chain (%d levels)", levels))
		r.Mitigations = append(r.Mitigations, "flatten dependencies so more suites can run in parallel")
	}

	over := 0
	for _, ph := range phases {
		if ph.OverCeiling {
			over++
		}
	}
	if over > 0 {
		r.Score += 3
		r.Factors = append(r.Factors, fmt.Sprintf("%d phase(s) exceed resource ceilings", over))
		r.Mitigations = append(r.Mitigations, "split heavy suites or lower their resource estimates")
	}

	if _, d := CriticalPath(g); d > longCriticalPath {
		r.Score += 2
		r.Factors = append(r.Factors, fmt.Sprintf("long critical path (%s)", d.Round(time.Second)))
		r.Mitigations = append(r.Mitigations, "shorten suites on the critical path")
	}

	if n := g.Len(); n > largeSuiteCount {
		r.Score++
		r.Factors = append(r.Factors, fmt.Sprintf("large suite count (%d)", n))
		r.Mitigations = append(r.Mitigations, "split the configuration into several sessions")
	}

	for _, id := range g.order {
		if n := len(g.Nodes[id].Dependents); n >= gatekeeperDependents {
			r.Score++
			r.Factors = append(r.Factors, fmt.Sprintf("suite %s gates %d suites", id, n))
			r.Mitigations = append(r.Mitigations, fmt.Sprintf("stabilize %s first; its failure skips %d suites", id, n))
		}
	}

	switch {
	case r.Score >= highRiskScore:
		r.Level = model.RiskHigh
	case r.Score >= mediumRiskScore:
		r.Level = model.RiskMedium
	default:
		r.Level = model.RiskLow
	}
	return r
}

package model

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/resource"
)

// Phase is a resource- and concurrency-bounded batch of suites from one
// dependency level.
type Phase struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Level             int                   `json:"level"`
	SuiteIDs          []string              `json:"suite_ids"`
	PhaseDependencies []string              `json:"phase_dependencies,omitempty"`
	EstimatedDuration time.Duration         `json:"estimated_duration"`
	MaxConcurrency    int                   `json:"max_concurrency"`
	Resources         resource.Requirements `json:"resources"`

	// OverCeiling is set when a single suite exceeded the phase ceilings
	// and was placed alone to keep the plan moving.
	OverCeiling bool `json:"over_ceiling,omitempty"`
}

// RiskLevel grades a plan.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment explains how likely a plan is to run into trouble.
type RiskAssessment struct {
	Level       RiskLevel `json:"level"`
	Score       int       `json:"score"`
	Factors     []string  `json:"factors,omitempty"`
	Mitigations []string  `json:"mitigations,omitempty"`
}

// ExecutionPlan is the immutable schedule computed for one session.
type ExecutionPlan struct {
	SessionID              string                `json:"session_id"`
	Phases                 []Phase               `json:"phases"`
	TotalEstimatedDuration time.Duration         `json:"total_estimated_duration"`
	Resources              resource.Requirements `json:"resources"`
	Risk                   RiskAssessment        `json:"risk"`
	CriticalPath           []string              `json:"critical_path,omitempty"`
	CriticalPathDuration   time.Duration         `json:"critical_path_duration"`
	CreatedAt              time.Time             `json:"created_at"`
}

// SuiteCount returns the number of suites across all phases.
func (p *ExecutionPlan) SuiteCount() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.SuiteIDs)
	}
	return n
}

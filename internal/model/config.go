package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// Environment tiers recognized by the queue's priority weights.
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvUrgent      = "urgent"
)

// SuiteDescriptor is one unit of test work with its declared dependencies
// and estimates.
type SuiteDescriptor struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Dependencies      []string              `json:"dependencies,omitempty"`
	EstimatedDuration time.Duration         `json:"estimated_duration"`
	Resources         resource.Requirements `json:"resources"`
	Parameters        map[string]any        `json:"parameters,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (d SuiteDescriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// TestConfiguration is the input to a session: which suites to run, where,
// and how wide.
type TestConfiguration struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Environment      string            `json:"environment"`
	ConcurrencyLevel int               `json:"concurrency_level"`
	RetryAttempts    int               `json:"retry_attempts"`
	TestSuites       []SuiteDescriptor `json:"test_suites"`
}

// Validate checks the configuration's shape. Dependency references and
// cycles are checked by the resolver.
func (c TestConfiguration) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.NewValidationError("configuration id is required").WithField("id")
	}
	if c.ConcurrencyLevel < 1 {
		return errors.NewValidationError("concurrency level must be at least 1").
			WithField("concurrency_level").
			WithValue(c.ConcurrencyLevel)
	}
	if c.RetryAttempts < 0 {
		return errors.NewValidationError("retry attempts must not be negative").
			WithField("retry_attempts").
			WithValue(c.RetryAttempts)
	}
	if len(c.TestSuites) == 0 {
		return errors.NewValidationError("configuration has no test suites").WithField("test_suites")
	}

	seen := make(map[string]bool, len(c.TestSuites))
	for i, s := range c.TestSuites {
		if strings.TrimSpace(s.ID) == "" {
			return errors.NewValidationError("suite id is required").
				WithField(fmt.Sprintf("test_suites[%d].id", i))
		}
		if seen[s.ID] {
			return errors.NewValidationError("duplicate suite id").
				WithField(fmt.Sprintf("test_suites[%d].id", i)).
				WithValue(s.ID).
				WithCause(errors.ErrDuplicateSuite)
		}
		seen[s.ID] = true
		if s.EstimatedDuration < 0 {
			return errors.NewValidationError("estimated duration must not be negative").
				WithField(fmt.Sprintf("test_suites[%d].estimated_duration", i)).
				WithValue(s.EstimatedDuration)
		}
		if err := s.Resources.Validate(); err != nil {
			return errors.Wrapf(err, "suite %s", s.ID)
		}
	}
	return nil
}

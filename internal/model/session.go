package model

import (
	"maps"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	default:
		return false
	}
}

// SuiteStatus is the state of one suite within a session.
type SuiteStatus string

const (
	SuitePending SuiteStatus = "pending"
	SuiteRunning SuiteStatus = "running"
	SuitePassed  SuiteStatus = "passed"
	SuiteFailed  SuiteStatus = "failed"
	SuiteSkipped SuiteStatus = "skipped"
	SuiteError   SuiteStatus = "error"
)

// IsFinal reports whether the suite has settled.
func (s SuiteStatus) IsFinal() bool {
	switch s {
	case SuitePassed, SuiteFailed, SuiteSkipped, SuiteError:
		return true
	default:
		return false
	}
}

// DependencyStatus records whether a suite's dependencies allowed it to run.
type DependencyStatus string

const (
	DependencySatisfied DependencyStatus = "satisfied"
	DependencyWaiting   DependencyStatus = "waiting"
	DependencyFailed    DependencyStatus = "failed"
)

// TestStatus is the outcome of a single test.
type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestSkipped TestStatus = "skipped"
)

// TestResult is one test reported by a runner.
type TestResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   TestStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
}

// SuiteMetrics summarizes a suite's test results.
type SuiteMetrics struct {
	TestCount    int     `json:"test_count"`
	PassedTests  int     `json:"passed_tests"`
	FailedTests  int     `json:"failed_tests"`
	SkippedTests int     `json:"skipped_tests"`
	PassRate     float64 `json:"pass_rate"`
}

// NewSuiteMetrics tallies results.
func NewSuiteMetrics(results []TestResult) SuiteMetrics {
	m := SuiteMetrics{TestCount: len(results)}
	for _, r := range results {
		switch r.Status {
		case TestPassed:
			m.PassedTests++
		case TestFailed:
			m.FailedTests++
		case TestSkipped:
			m.SkippedTests++
		}
	}
	if m.TestCount > 0 {
		m.PassRate = float64(m.PassedTests) / float64(m.TestCount) * 100
	}
	return m
}

// SuiteResult tracks one suite through a session.
type SuiteResult struct {
	SuiteID          string           `json:"suite_id"`
	SuiteName        string           `json:"suite_name"`
	PhaseID          string           `json:"phase_id"`
	Status           SuiteStatus      `json:"status"`
	StartTime        time.Time        `json:"start_time,omitzero"`
	EndTime          time.Time        `json:"end_time,omitzero"`
	Duration         time.Duration    `json:"duration"`
	TestResults      []TestResult     `json:"test_results,omitempty"`
	Dependencies     []string         `json:"dependencies,omitempty"`
	DependencyStatus DependencyStatus `json:"dependency_status"`
	RetryCount       int              `json:"retry_count"`
	MaxRetries       int              `json:"max_retries"`
	Metrics          SuiteMetrics     `json:"metrics"`
}

// Progress counts suites by outcome.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Running    int     `json:"running"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Percentage float64 `json:"percentage"`
}

// ExecutionMetrics is computed when a session is finalized.
type ExecutionMetrics struct {
	StartTime            time.Time     `json:"start_time,omitzero"`
	EndTime              time.Time     `json:"end_time,omitzero"`
	Duration             time.Duration `json:"duration"`
	QueuedFor            time.Duration `json:"queued_for"`
	SuccessRate          float64       `json:"success_rate"`
	AverageSuiteDuration time.Duration `json:"average_suite_duration"`
	Throughput           float64       `json:"throughput"` // suites per minute
}

// ResourceUsage records what the session reserved and when.
type ResourceUsage struct {
	Requested   resource.Requirements `json:"requested"`
	AllocatedAt time.Time             `json:"allocated_at,omitzero"`
	ReleasedAt  time.Time             `json:"released_at,omitzero"`
}

// ExecutionError is an error recorded on a session.
type ExecutionError struct {
	Category  errors.Category   `json:"category"`
	Severity  errors.Severity   `json:"severity"`
	Message   string            `json:"message"`
	SuiteID   string            `json:"suite_id,omitempty"`
	PhaseID   string            `json:"phase_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
}

// NewExecutionError classifies err into a session error record.
func NewExecutionError(err error, at time.Time) ExecutionError {
	rec := ExecutionError{
		Category:  errors.CategoryOf(err),
		Severity:  errors.GetSeverity(err),
		Message:   err.Error(),
		Timestamp: at,
	}
	var runErr *errors.RunError
	if errors.As(err, &runErr) {
		rec.SuiteID = runErr.SuiteID
		rec.PhaseID = runErr.PhaseID
	}
	var depErr *errors.DependencyError
	if errors.As(err, &depErr) {
		rec.SuiteID = depErr.SuiteID
	}
	return rec
}

// SessionInfo is the read-only view of a session handed to runners.
type SessionInfo struct {
	ID               string `json:"id"`
	ConfigurationID  string `json:"configuration_id"`
	Environment      string `json:"environment"`
	ConcurrencyLevel int    `json:"concurrency_level"`
}

// TestSession is one end-to-end run of a configuration.
type TestSession struct {
	ID              string            `json:"id"`
	ConfigurationID string            `json:"configuration_id"`
	Configuration   TestConfiguration `json:"configuration"`
	Status          SessionStatus     `json:"status"`
	Plan            *ExecutionPlan    `json:"plan,omitempty"`
	Progress        Progress          `json:"progress"`
	SuiteResults    []SuiteResult     `json:"suite_results"`
	Errors          []ExecutionError  `json:"errors,omitempty"`
	Metrics         ExecutionMetrics  `json:"metrics"`
	ResourceUsage   ResourceUsage     `json:"resource_usage"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Info returns the runner-facing view of the session.
func (s *TestSession) Info() SessionInfo {
	return SessionInfo{
		ID:               s.ID,
		ConfigurationID:  s.ConfigurationID,
		Environment:      s.Configuration.Environment,
		ConcurrencyLevel: s.Configuration.ConcurrencyLevel,
	}
}

// Result returns the result record for suiteID, or nil.
func (s *TestSession) Result(suiteID string) *SuiteResult {
	for i := range s.SuiteResults {
		if s.SuiteResults[i].SuiteID == suiteID {
			return &s.SuiteResults[i]
		}
	}
	return nil
}

// RecountProgress recomputes Progress from the suite results.
func (s *TestSession) RecountProgress() {
	p := Progress{Total: len(s.SuiteResults)}
	for _, r := range s.SuiteResults {
		switch r.Status {
		case SuitePassed:
			p.Passed++
		case SuiteFailed, SuiteError:
			p.Failed++
		case SuiteSkipped:
			p.Skipped++
		case SuiteRunning:
			p.Running++
		}
	}
	p.Completed = p.Passed + p.Failed + p.Skipped
	if p.Total > 0 {
		p.Percentage = float64(p.Completed) / float64(p.Total) * 100
	}
	s.Progress = p
}

// Clone returns a deep copy safe to hand to callers.
func (s *TestSession) Clone() *TestSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Configuration = s.Configuration.clone()
	if s.Plan != nil {
		plan := s.Plan.clone()
		out.Plan = &plan
	}
	out.SuiteResults = make([]SuiteResult, len(s.SuiteResults))
	for i, r := range s.SuiteResults {
		r.TestResults = append([]TestResult(nil), r.TestResults...)
		r.Dependencies = append([]string(nil), r.Dependencies...)
		out.SuiteResults[i] = r
	}
	out.Errors = make([]ExecutionError, len(s.Errors))
	for i, e := range s.Errors {
		e.Context = maps.Clone(e.Context)
		out.Errors[i] = e
	}
	return &out
}

func (c TestConfiguration) clone() TestConfiguration {
	out := c
	out.TestSuites = make([]SuiteDescriptor, len(c.TestSuites))
	for i, s := range c.TestSuites {
		s.Dependencies = append([]string(nil), s.Dependencies...)
		s.Parameters = maps.Clone(s.Parameters)
		out.TestSuites[i] = s
	}
	return out
}

func (p ExecutionPlan) clone() ExecutionPlan {
	out := p
	out.Phases = make([]Phase, len(p.Phases))
	for i, ph := range p.Phases {
		ph.SuiteIDs = append([]string(nil), ph.SuiteIDs...)
		ph.PhaseDependencies = append([]string(nil), ph.PhaseDependencies...)
		out.Phases[i] = ph
	}
	out.CriticalPath = append([]string(nil), p.CriticalPath...)
	out.Risk.Factors = append([]string(nil), p.Risk.Factors...)
	out.Risk.Mitigations = append([]string(nil), p.Risk.Mitigations...)
	return out
}

package model

import (
	"testing"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
)

func validConfig() TestConfiguration {
	return TestConfiguration{
		ID:               "cfg",
		Environment:      EnvStaging,
		ConcurrencyLevel: 2,
		TestSuites: []SuiteDescriptor{
			{ID: "a", Name: "A", EstimatedDuration: time.Second},
			{ID: "b", Dependencies: []string{"a"}},
		},
	}
}

func TestTestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TestConfiguration)
		wantErr bool
	}{
		{"valid", func(*TestConfiguration) {}, false},
		{"missing id", func(c *TestConfiguration) { c.ID = " " }, true},
		{"zero concurrency", func(c *TestConfiguration) { c.ConcurrencyLevel = 0 }, true},
		{"negative retries", func(c *TestConfiguration) { c.RetryAttempts = -1 }, true},
		{"no suites", func(c *TestConfiguration) { c.TestSuites = nil }, true},
		{"empty suite id", func(c *TestConfiguration) { c.TestSuites[0].ID = "" }, true},
		{"duplicate suite", func(c *TestConfiguration) { c.TestSuites[1].ID = "a" }, true},
		{"negative duration", func(c *TestConfiguration) { c.TestSuites[0].EstimatedDuration = -time.Second }, true},
		{"negative memory", func(c *TestConfiguration) { c.TestSuites[0].Resources.MemoryMB = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestTestConfiguration_DuplicateWrapsSentinel(t *testing.T) {
	cfg := validConfig()
	cfg.TestSuites[1].ID = "a"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrDuplicateSuite) {
		t.Errorf("Validate() = %v, want ErrDuplicateSuite", err)
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []SessionStatus{SessionCompleted, SessionFailed, SessionCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	for _, s := range []SessionStatus{SessionPending, SessionRunning} {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
	if SuiteRunning.IsFinal() || SuitePending.IsFinal() {
		t.Error("pending and running suites are not final")
	}
	if !SuiteError.IsFinal() {
		t.Error("error suites are final")
	}
}

func TestRecountProgress(t *testing.T) {
	s := &TestSession{SuiteResults: []SuiteResult{
		{SuiteID: "a", Status: SuitePassed},
		{SuiteID: "b", Status: SuiteFailed},
		{SuiteID: "c", Status: SuiteError},
		{SuiteID: "d", Status: SuiteSkipped},
		{SuiteID: "e", Status: SuiteRunning},
	}}
	s.RecountProgress()

	want := Progress{Total: 5, Completed: 4, Running: 1, Passed: 1, Failed: 2, Skipped: 1, Percentage: 80}
	if s.Progress != want {
		t.Errorf("Progress = %+v, want %+v", s.Progress, want)
	}
}

func TestNewSuiteMetrics(t *testing.T) {
	m := NewSuiteMetrics([]TestResult{
		{Status: TestPassed}, {Status: TestPassed}, {Status: TestFailed}, {Status: TestSkipped},
	})
	if m.TestCount != 4 || m.PassedTests != 2 || m.FailedTests != 1 || m.SkippedTests != 1 {
		t.Errorf("NewSuiteMetrics() = %+v", m)
	}
	if m.PassRate != 50 {
		t.Errorf("PassRate = %v, want 50", m.PassRate)
	}
	if NewSuiteMetrics(nil).PassRate != 0 {
		t.Error("empty results should have zero pass rate")
	}
}

func TestNewExecutionError(t *testing.T) {
	err := errors.NewRunError("runner crashed", nil).WithSuiteID("a").WithPhaseID("phase-0-0")
	rec := NewExecutionError(err, time.Unix(0, 0))

	if rec.Category != errors.CategoryExecution {
		t.Errorf("Category = %v, want execution", rec.Category)
	}
	if rec.Severity != errors.SeverityHigh {
		t.Errorf("Severity = %v, want high", rec.Severity)
	}
	if rec.SuiteID != "a" || rec.PhaseID != "phase-0-0" {
		t.Errorf("context = %q/%q, want a/phase-0-0", rec.SuiteID, rec.PhaseID)
	}
}

func TestTestSession_CloneIsDeep(t *testing.T) {
	s := &TestSession{
		ID:            "s",
		Configuration: validConfig(),
		Plan:          &ExecutionPlan{Phases: []Phase{{ID: "p", SuiteIDs: []string{"a"}}}},
		SuiteResults:  []SuiteResult{{SuiteID: "a", TestResults: []TestResult{{ID: "t1"}}}},
		Errors:        []ExecutionError{{Message: "x", Context: map[string]string{"k": "v"}}},
	}
	c := s.Clone()

	c.SuiteResults[0].Status = SuiteFailed
	c.SuiteResults[0].TestResults[0].ID = "changed"
	c.Plan.Phases[0].SuiteIDs[0] = "changed"
	c.Configuration.TestSuites[1].Dependencies[0] = "changed"
	c.Errors[0].Context["k"] = "changed"

	if s.SuiteResults[0].Status != "" || s.SuiteResults[0].TestResults[0].ID != "t1" {
		t.Error("suite results were shared")
	}
	if s.Plan.Phases[0].SuiteIDs[0] != "a" {
		t.Error("plan was shared")
	}
	if s.Configuration.TestSuites[1].Dependencies[0] != "a" {
		t.Error("configuration was shared")
	}
	if s.Errors[0].Context["k"] != "v" {
		t.Error("error context was shared")
	}
	if (*TestSession)(nil).Clone() != nil {
		t.Error("Clone(nil) should be nil")
	}
}

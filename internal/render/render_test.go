package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resolver"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/testutil"
)

func TestNew_PlainForBuffers(t *testing.T) {
	r := New(&bytes.Buffer{})
	if r.Styled() {
		t.Error("Styled() = true for a buffer, want false")
	}
}

func TestRenderer_Plan(t *testing.T) {
	cfg := testutil.Config("checkout", 2,
		testutil.Suite("api"),
		testutil.Suite("ui", "api"),
		testutil.Suite("e2e", "api"),
	)
	plan, _, err := resolver.BuildPlan("s1", cfg)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}

	var buf bytes.Buffer
	New(&buf).Plan(cfg, plan)
	out := buf.String()

	for _, want := range []string{
		"Plan for config checkout",
		"suites",
		plan.Phases[0].ID,
		plan.Phases[1].ID,
		"- api",
		"- ui",
		"- e2e",
		"risk",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output should not contain escape sequences")
	}
}

func TestRenderer_Session(t *testing.T) {
	s := &model.TestSession{
		ID:            "s1",
		Configuration: model.TestConfiguration{ID: "cfg"},
		Status:        model.SessionFailed,
		Progress:      model.Progress{Total: 2, Passed: 1, Failed: 1},
		SuiteResults: []model.SuiteResult{
			{SuiteID: "api", Status: model.SuitePassed, Duration: 2 * time.Second, Metrics: model.SuiteMetrics{TestCount: 4, PassedTests: 4}},
			{SuiteID: "ui", Status: model.SuiteFailed},
		},
		Errors: []model.ExecutionError{
			{Category: errors.CategoryExecution, Severity: errors.SeverityHigh, Message: "ui broke"},
		},
		Metrics: model.ExecutionMetrics{Duration: 3 * time.Second, SuccessRate: 50},
	}

	var buf bytes.Buffer
	New(&buf).Session(s)
	out := buf.String()

	for _, want := range []string{
		"cfg failed",
		"1/2 passed, 1 failed, 0 skipped",
		"passed   api",
		"4/4 tests, 2s",
		"failed   ui",
		"50.0%",
		"ui broke",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{1500 * time.Microsecond, "2ms"},
		{90*time.Second + 400*time.Millisecond, "1m30s"},
	}
	for _, tt := range tests {
		if got := Duration(tt.in); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResources(t *testing.T) {
	got := Resources(resource.Requirements{MemoryMB: 256, CPUPercent: 20, NetworkMbps: 10, StorageMB: 100, ConcurrentUsers: 5})
	want := "256MB mem, 20% cpu, 10Mbps net, 100MB disk, 5 users"
	if got != want {
		t.Errorf("Resources() = %q, want %q", got, want)
	}
}

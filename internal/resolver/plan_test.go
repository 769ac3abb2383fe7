package resolver

import (
	"testing"
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
	"github.com/suitepilot/suitepilot/internal/testutil"
)

func TestCriticalPath_Diamond(t *testing.T) {
	a, b, c, d := testutil.Suite("a"), testutil.Suite("b", "a"), testutil.Suite("c", "a"), testutil.Suite("d", "b", "c")
	a.EstimatedDuration = time.Second
	b.EstimatedDuration = 2 * time.Second
	c.EstimatedDuration = 5 * time.Second
	d.EstimatedDuration = time.Second
	e := testutil.Suite("e")
	e.EstimatedDuration = 6 * time.Second

	path, total := CriticalPath(mustGraph(t, a, b, c, d, e))
	want := []string{"a", "c", "d"}
	if len(path) != len(want) {
		t.Fatalf("CriticalPath() = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("path[%d] = %s, want %s", i, path[i], want[i])
		}
	}
	if total != 7*time.Second {
		t.Errorf("duration = %v, want 7s", total)
	}
}

func TestCriticalPath_WideDiamondChain(t *testing.T) {
	// A chain of 30 diamonds; exponential recursion would not finish.
	var suites []model.SuiteDescriptor
	prev := "n0"
	suites = append(suites, testutil.Suite(prev))
	for i := 1; i <= 30; i++ {
		l, r, j := id("l", i), id("r", i), id("n", i)
		suites = append(suites, testutil.Suite(l, prev), testutil.Suite(r, prev), testutil.Suite(j, l, r))
		prev = j
	}

	path, total := CriticalPath(mustGraph(t, suites...))
	if len(path) != 61 {
		t.Errorf("len(path) = %d, want 61", len(path))
	}
	if total != 61*time.Second {
		t.Errorf("duration = %v, want 61s", total)
	}
}

func id(prefix string, i int) string {
	return prefix + string(rune('A'+i))
}

func TestCriticalPath_Empty(t *testing.T) {
	path, total := CriticalPath(&Graph{Nodes: map[string]*Node{}, Levels: map[int][]string{}})
	if path != nil || total != 0 {
		t.Errorf("CriticalPath(empty) = %v, %v", path, total)
	}
}

func TestBuildPlan(t *testing.T) {
	cfg := testutil.Config("cfg", 2, testutil.Suite("A"), testutil.Suite("B", "A"), testutil.Suite("C", "A"))

	plan, g, err := BuildPlan("s1", cfg)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if plan.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", plan.SessionID)
	}
	if len(plan.Phases) != 2 || plan.SuiteCount() != 3 {
		t.Errorf("plan has %d phases / %d suites, want 2 / 3", len(plan.Phases), plan.SuiteCount())
	}
	if plan.TotalEstimatedDuration != 2*time.Second {
		t.Errorf("TotalEstimatedDuration = %v, want 2s", plan.TotalEstimatedDuration)
	}
	// Peak is phase 1 (B + C).
	want := resource.Requirements{MemoryMB: 200, CPUPercent: 20, NetworkMbps: 10, StorageMB: 100, ConcurrentUsers: 2}
	if plan.Resources != want {
		t.Errorf("Resources = %+v, want %+v", plan.Resources, want)
	}
	if plan.Risk.Level != model.RiskLow {
		t.Errorf("Risk.Level = %s, want low", plan.Risk.Level)
	}
	if len(plan.CriticalPath) != 2 || plan.CriticalPath[0] != "A" {
		t.Errorf("CriticalPath = %v", plan.CriticalPath)
	}
	if !ValidateExecutionOrder(plan.Phases, g) {
		t.Error("plan phases are not a valid order")
	}
}

func TestBuildPlan_ConcurrencyFloor(t *testing.T) {
	s := testutil.Suite("a")
	s.Resources = resource.Requirements{MemoryMB: 5}
	plan, _, err := BuildPlan("s", testutil.Config("cfg", 20, s))
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if plan.Resources.MemoryMB != 200 || plan.Resources.CPUPercent != 40 {
		t.Errorf("Resources = %+v, want floor of 200MB / 40%% cpu", plan.Resources)
	}
}

func TestBuildPlan_Cycle(t *testing.T) {
	_, _, err := BuildPlan("s", testutil.Config("cfg", 1, testutil.Suite("a", "b"), testutil.Suite("b", "a")))
	if !errors.Is(err, errors.ErrDependencyCycle) {
		t.Fatalf("BuildPlan() error = %v, want ErrDependencyCycle", err)
	}
	var depErr *errors.DependencyError
	if !errors.As(err, &depErr) || len(depErr.Cycle) != 3 {
		t.Errorf("cycle path = %v, want 3 entries", depErr)
	}
	if errors.CategoryOf(err) != errors.CategoryDependency {
		t.Errorf("CategoryOf() = %v, want dependency", errors.CategoryOf(err))
	}
}

func TestAssessRisk(t *testing.T) {
	// A chain of 7 levels with one over-ceiling suite.
	var suites []model.SuiteDescriptor
	prev := ""
	for i := range 7 {
		s := testutil.Suite(id("s", i))
		if prev != "" {
			s.Dependencies = []string{prev}
		}
		prev = s.ID
		suites = append(suites, s)
	}
	suites[3].Resources.MemoryMB = 9000

	g := mustGraph(t, suites...)
	risk := AssessRisk(g, CreatePhases(g, 2))
	if risk.Level != model.RiskHigh {
		t.Errorf("Level = %s (score %d, factors %v), want high", risk.Level, risk.Score, risk.Factors)
	}
	if len(risk.Factors) != len(risk.Mitigations) {
		t.Errorf("factors and mitigations should pair up: %v / %v", risk.Factors, risk.Mitigations)
	}

	simple := mustGraph(t, testutil.Suite("a"))
	if got := AssessRisk(simple, CreatePhases(simple, 1)); got.Level != model.RiskLow || len(got.Factors) != 0 {
		t.Errorf("simple plan risk = %+v, want low with no factors", got)
	}
}

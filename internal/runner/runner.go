// Package runner defines the seam between the orchestrator and whatever
// actually executes a suite's tests.
//
// The orchestrator only needs a [Runner]. [Simulated] generates synthetic
// results for demos and load testing; [Func] adapts a plain function, which
// is what most tests use.
package runner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/suitepilot/suitepilot/internal/model"
)

// Runner executes one suite and reports its test results. A returned error
// means the suite could not be executed at all; failing tests are reported
// through the results.
type Runner interface {
	Run(ctx context.Context, session model.SessionInfo, suite model.SuiteResult) ([]model.TestResult, error)
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, session model.SessionInfo, suite model.SuiteResult) ([]model.TestResult, error)

// Run calls f.
func (f Func) Run(ctx context.Context, session model.SessionInfo, suite model.SuiteResult) ([]model.TestResult, error) {
	return f(ctx, session, suite)
}

const (
	defaultMinTests = 5
	defaultMaxTests = 15
	defaultPassRate = 0.95
)

// SimulatedOption configures a Simulated runner.
type SimulatedOption func(*Simulated)

// WithPassRate sets the probability that a synthetic test passes.
func WithPassRate(p float64) SimulatedOption {
	return func(s *Simulated) {
		s.passRate = min(max(p, 0), 1)
	}
}

// WithTestDelay sets how long each synthetic test takes.
func WithTestDelay(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if d >= 0 {
			s.testDelay = d
		}
	}
}

// WithTestCount sets the inclusive range of tests generated per suite.
func WithTestCount(lo, hi int) SimulatedOption {
	return func(s *Simulated) {
		if lo > 0 && hi >= lo {
			s.minTests, s.maxTests = lo, hi
		}
	}
}

// WithSeed makes the generated results reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// Simulated generates between 5 and 15 synthetic test results per suite.
// It is safe for concurrent use.
type Simulated struct {
	minTests  int
	maxTests  int
	passRate  float64
	testDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated runner.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		minTests: defaultMinTests,
		maxTests: defaultMaxTests,
		passRate: defaultPassRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Run produces the synthetic results, sleeping testDelay per test. It stops
// early with the context error when ctx is cancelled.
func (s *Simulated) Run(ctx context.Context, session model.SessionInfo, suite model.SuiteResult) ([]model.TestResult, error) {
	s.mu.Lock()
	n := s.minTests + s.rng.IntN(s.maxTests-s.minTests+1)
	passed := make([]bool, n)
	for i := range passed {
		passed[i] = s.rng.Float64() < s.passRate
	}
	s.mu.Unlock()

	results := make([]model.TestResult, 0, n)
	for i := range n {
		start := time.Now()
		if s.testDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.testDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := model.TestResult{
			ID:       fmt.Sprintf("%s-test-%d", suite.SuiteID, i+1),
			Name:     fmt.Sprintf("%s test %d", suite.SuiteName, i+1),
			Status:   model.TestPassed,
			Duration: time.Since(start),
		}
		if !passed[i] {
			r.Status = model.TestFailed
			r.Message = "simulated assertion failure"
		}
		results = append(results, r)
	}
	return results, nil
}

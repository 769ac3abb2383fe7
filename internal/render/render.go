// Package render formats plans and sessions for the terminal.
//
// Output is styled with lipgloss when the destination is a terminal and
// left as plain text otherwise, so piped output and tests see stable text.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// Renderer writes human-readable reports to an output.
type Renderer struct {
	out    io.Writer
	styled bool
}

// New returns a Renderer for w. Styling is enabled only when w is a
// terminal.
func New(w io.Writer) *Renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{out: w, styled: styled}
}

// Styled reports whether output is coloured.
func (r *Renderer) Styled() bool {
	return r.styled
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) field(label string, value any) {
	if r.styled {
		fmt.Fprintf(r.out, "  %s %v\n", Label.Render(label), value)
		return
	}
	fmt.Fprintf(r.out, "  %-14s %v\n", label, value)
}

// Plan writes a phase-by-phase summary of plan.
func (r *Renderer) Plan(cfg model.TestConfiguration, plan *model.ExecutionPlan) {
	fmt.Fprintln(r.out, r.paint(Title, fmt.Sprintf("Plan for %s", displayName(cfg))))
	r.field("environment", cfg.Environment)
	r.field("suites", plan.SuiteCount())
	r.field("phases", len(plan.Phases))
	r.field("estimate", Duration(plan.TotalEstimatedDuration))
	r.field("resources", Resources(plan.Resources))
	r.field("risk", r.paint(riskStyle(plan.Risk.Level), fmt.Sprintf("%s (%d)", plan.Risk.Level, plan.Risk.Score)))
	if len(plan.CriticalPath) > 0 {
		r.field("critical path", fmt.Sprintf("%s (%s)", strings.Join(plan.CriticalPath, " -> "), Duration(plan.CriticalPathDuration)))
	}

	for _, ph := range plan.Phases {
		fmt.Fprintln(r.out)
		header := fmt.Sprintf("%s  level %d, up to %d in parallel, ~%s", ph.ID, ph.Level, ph.MaxConcurrency, Duration(ph.EstimatedDuration))
		fmt.Fprintln(r.out, r.paint(Heading, header))
		if ph.OverCeiling {
			fmt.Fprintln(r.out, "  "+r.paint(Warn, "exceeds phase ceilings, runs alone"))
		}
		for _, id := range ph.SuiteIDs {
			fmt.Fprintf(r.out, "  - %s\n", id)
		}
	}

	if len(plan.Risk.Factors) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.paint(Heading, "Risk factors"))
		for _, f := range plan.Risk.Factors {
			fmt.Fprintf(r.out, "  - %s\n", f)
		}
		for _, m := range plan.Risk.Mitigations {
			fmt.Fprintf(r.out, "  %s %s\n", r.paint(Muted, "mitigation:"), m)
		}
	}
}

// Session writes the outcome of a session, one line per suite.
func (r *Renderer) Session(s *model.TestSession) {
	status := r.paint(sessionStyle(s.Status), string(s.Status))
	fmt.Fprintf(r.out, "%s %s\n", r.paint(Title, displayName(s.Configuration)), status)
	r.field("session", s.ID)
	r.field("progress", fmt.Sprintf("%d/%d passed, %d failed, %d skipped",
		s.Progress.Passed, s.Progress.Total, s.Progress.Failed, s.Progress.Skipped))
	if s.Status.IsTerminal() {
		r.field("duration", Duration(s.Metrics.Duration))
		r.field("success rate", fmt.Sprintf("%.1f%%", s.Metrics.SuccessRate))
	}

	for _, res := range s.SuiteResults {
		line := fmt.Sprintf("  %-8s %s", res.Status, res.SuiteID)
		if r.styled {
			line = fmt.Sprintf("  %s %s", suiteStyle(res.Status).Width(8).Render(string(res.Status)), res.SuiteID)
		}
		if res.Metrics.TestCount > 0 {
			line += r.paint(Muted, fmt.Sprintf("  %d/%d tests, %s", res.Metrics.PassedTests, res.Metrics.TestCount, Duration(res.Duration)))
		}
		fmt.Fprintln(r.out, line)
	}

	for _, e := range s.Errors {
		fmt.Fprintf(r.out, "  %s %s\n", r.paint(Fail, fmt.Sprintf("[%s/%s]", e.Category, e.Severity)), e.Message)
	}
}

func displayName(cfg model.TestConfiguration) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.ID
}

// Duration formats d rounded to a readable precision.
func Duration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// Resources formats a requirement vector compactly.
func Resources(req resource.Requirements) string {
	return fmt.Sprintf("%.0fMB mem, %.0f%% cpu, %.0fMbps net, %.0fMB disk, %d users",
		req.MemoryMB, req.CPUPercent, req.NetworkMbps, req.StorageMB, req.ConcurrentUsers)
}

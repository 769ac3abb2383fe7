package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/suitepilot/suitepilot/internal/model"
)

var (
	// Colors match the palette used across the CLI
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	PassColor    = lipgloss.Color("#10B981") // Green
	WarnColor    = lipgloss.Color("#F59E0B") // Amber
	FailColor    = lipgloss.Color("#F87171") // Red
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	InfoColor    = lipgloss.Color("#60A5FA") // Blue

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Underline(true)

	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(14)

	Muted = lipgloss.NewStyle().Foreground(MutedColor)
	Pass  = lipgloss.NewStyle().Foreground(PassColor)
	Warn  = lipgloss.NewStyle().Foreground(WarnColor)
	Fail  = lipgloss.NewStyle().Foreground(FailColor).Bold(true)
	Info  = lipgloss.NewStyle().Foreground(InfoColor)
)

// sessionStyle picks the colour for a session status.
func sessionStyle(s model.SessionStatus) lipgloss.Style {
	switch s {
	case model.SessionCompleted:
		return Pass
	case model.SessionFailed:
		return Fail
	case model.SessionCancelled:
		return Warn
	case model.SessionRunning:
		return Info
	default:
		return Muted
	}
}

// suiteStyle picks the colour for a suite status.
func suiteStyle(s model.SuiteStatus) lipgloss.Style {
	switch s {
	case model.SuitePassed:
		return Pass
	case model.SuiteFailed, model.SuiteError:
		return Fail
	case model.SuiteSkipped:
		return Warn
	case model.SuiteRunning:
		return Info
	default:
		return Muted
	}
}

func riskStyle(l model.RiskLevel) lipgloss.Style {
	switch l {
	case model.RiskHigh:
		return Fail
	case model.RiskMedium:
		return Warn
	default:
		return Pass
	}
}

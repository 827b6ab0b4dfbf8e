package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the watch view
type Styles struct {
	Title lipgloss.Style
	Timer lipgloss.Style

	ProjectName lipgloss.Style
	WorkerAlive lipgloss.Style
	WorkerDead  lipgloss.Style

	JobRunning lipgloss.Style
	JobPending lipgloss.Style

	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	Error lipgloss.Style
}

// DefaultStyles returns the default watch view styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		ProjectName: lipgloss.NewStyle().Bold(true),
		WorkerAlive: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		WorkerDead:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		JobRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		JobPending: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Icons used in the watch view
const (
	IconRunning = "●"
	IconPending = "○"
	IconAlive   = "✓"
	IconDead    = "✗"
)

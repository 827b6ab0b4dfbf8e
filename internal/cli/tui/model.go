// Package tui renders a live view of project queues for the watch command.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// JobRow is one job's display state.
type JobRow struct {
	ID          string
	Status      string
	Priority    string
	Age         time.Duration
	AgeKnown    bool
	MessageText string
}

// ProjectRow is one project's display state.
type ProjectRow struct {
	Key         string
	WorkerAlive bool
	Depth       int
	Jobs        []JobRow
}

// Loader produces a fresh snapshot of all project queues.
type Loader func() ([]ProjectRow, error)

// Model is the bubbletea model for the watch view
type Model struct {
	Styles Styles

	load     Loader
	Projects []ProjectRow
	LoadErr  error

	StartTime time.Time
	Width     int
	Height    int

	Quitting bool
}

// NewModel creates a new watch model around a snapshot loader
func NewModel(load Loader) *Model {
	return &Model{
		Styles:    DefaultStyles(),
		load:      load,
		StartTime: time.Now(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), tickCmd())
}

// TickMsg is sent every refresh interval
type TickMsg time.Time

// SnapshotMsg carries a fresh queue snapshot
type SnapshotMsg struct {
	Projects []ProjectRow
	Err      error
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.load()
		return SnapshotMsg{Projects: rows, Err: err}
	}
}

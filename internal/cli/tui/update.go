package tui

import tea "github.com/charmbracelet/bubbletea"

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		return m, tea.Batch(m.loadCmd(), tickCmd())

	case SnapshotMsg:
		if msg.Err != nil {
			m.LoadErr = msg.Err
		} else {
			m.LoadErr = nil
			m.Projects = msg.Projects
		}
	}

	return m, nil
}

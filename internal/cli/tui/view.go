package tui

import (
	"fmt"
	"strings"
	"time"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.LoadErr != nil {
		b.WriteString(m.Styles.Error.Render("  load error: " + m.LoadErr.Error()))
		b.WriteString("\n")
	} else if len(m.Projects) == 0 {
		b.WriteString("  No jobs\n")
	} else {
		for _, p := range m.Projects {
			b.WriteString(m.renderProject(p))
		}
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", elapsed)
	return fmt.Sprintf("%s  %s",
		m.Styles.Title.Render("Steward Queues"),
		m.Styles.Timer.Render(timer))
}

func (m *Model) renderProject(p ProjectRow) string {
	var b strings.Builder

	worker := m.Styles.WorkerAlive.Render(IconAlive + " worker")
	if !p.WorkerAlive {
		worker = m.Styles.WorkerDead.Render(IconDead + " no worker")
	}
	fmt.Fprintf(&b, "  %s  %s  %d pending\n",
		m.Styles.ProjectName.Render(p.Key), worker, p.Depth)

	for _, j := range p.Jobs {
		b.WriteString(m.renderJob(j))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderJob(j JobRow) string {
	icon := m.Styles.JobPending.Render(IconPending)
	style := m.Styles.JobPending
	if j.Status == "running" {
		icon = m.Styles.JobRunning.Render(IconRunning)
		style = m.Styles.JobRunning
	}
	age := "N/A"
	if j.AgeKnown {
		age = j.Age.Round(time.Second).String()
	}
	msg := j.MessageText
	if max := m.Width - 40; max > 10 && len(msg) > max {
		msg = msg[:max-1] + "…"
	}
	return fmt.Sprintf("    %s %s %-4s %-8s %s\n",
		icon, j.ID[:8], j.Priority, age, style.Render(msg))
}

func (m *Model) renderFooter() string {
	return m.Styles.Footer.Render(
		m.Styles.FooterKey.Render("q") + " quit")
}

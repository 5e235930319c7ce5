package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.state == stateAddHabit || m.state == stateSetReminder {
		return docStyle.Render(m.form.View())
	}

	header := titleStyle.Render("umbral") + " " + summaryStyle.Render(m.summary())

	var banner string
	if m.formError != "" {
		banner = errorStyle.Render("✗ " + m.formError)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		banner,
		docStyle.Render(m.list.View()),
	)
}

func (m Model) summary() string {
	display := m.store.Habits()
	done := 0
	for _, h := range display {
		if h.Completed {
			done++
		}
	}
	return fmt.Sprintf("%s · %d/%d completed", m.store.Today(), done, len(display))
}

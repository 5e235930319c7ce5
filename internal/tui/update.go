package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case storeChangedMsg:
		m.list.SetItems(habitItems(m.store))
		cmds = append(cmds, m.waitForChange())
	}

	switch m.state {
	case stateAddHabit:
		return m.updateAddHabit(msg, cmds)
	case stateSetReminder:
		return m.updateSetReminder(msg, cmds)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.list.FilterState() != list.Filtering {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.quitting = true
				return m, tea.Quit
			case key.Matches(msg, m.keys.Toggle):
				if i, ok := m.list.SelectedItem().(Item); ok {
					if err := m.store.Toggle(i.Habit.ID); err != nil {
						m.formError = err.Error()
					} else {
						m.formError = ""
						m.list.SetItems(habitItems(m.store))
					}
				}
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Add):
				m.habitForm = &habitFormModel{}
				m.form = newHabitForm(m.habitForm)
				m.state = stateAddHabit
				cmds = append(cmds, m.form.Init())
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Remind):
				if i, ok := m.list.SelectedItem().(Item); ok {
					m.reminderForm = &reminderFormModel{}
					if i.Habit.ReminderTime != nil {
						m.reminderForm.Time = *i.Habit.ReminderTime
					}
					m.remindingID = i.Habit.ID
					m.form = newReminderForm(m.reminderForm)
					m.state = stateSetReminder
					cmds = append(cmds, m.form.Init())
				}
				return m, tea.Batch(cmds...)
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateAddHabit(msg tea.Msg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = stateBoard
		return m, tea.Batch(cmds...)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if _, err := m.store.Add(m.habitForm.Name); err == nil {
			m.formError = ""
			m.list.SetItems(habitItems(m.store))
			m.state = stateBoard
		} else {
			m.formError = err.Error()
			m.form.State = huh.StateNormal
		}
	case huh.StateAborted:
		m.state = stateBoard
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateSetReminder(msg tea.Msg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = stateBoard
		return m, tea.Batch(cmds...)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		var timeStr *string
		if trimmed := strings.TrimSpace(m.reminderForm.Time); trimmed != "" {
			timeStr = &trimmed
		}
		if err := m.store.SetReminder(m.remindingID, timeStr); err == nil {
			m.formError = ""
			m.list.SetItems(habitItems(m.store))
			m.state = stateBoard
		} else {
			m.formError = err.Error()
			m.form.State = huh.StateNormal
		}
	case huh.StateAborted:
		m.state = stateBoard
	}
	return m, tea.Batch(cmds...)
}

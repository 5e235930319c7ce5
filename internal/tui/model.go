package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/umbral/internal/habits"
	"github.com/julianstephens/umbral/internal/models"
	"github.com/julianstephens/umbral/internal/utils"
)

type sessionState int

const (
	stateBoard sessionState = iota
	stateAddHabit
	stateSetReminder
)

// storeChangedMsg arrives whenever the habit store's snapshot moved,
// whether from a local mutation or a remote one.
type storeChangedMsg struct{}

type habitFormModel struct {
	Name string
}

type reminderFormModel struct {
	Time string
}

type Item struct {
	Habit models.DisplayHabit
}

func (i Item) Title() string {
	if i.Habit.Completed {
		return "✓ " + i.Habit.Name
	}
	return "○ " + i.Habit.Name
}

func (i Item) Description() string {
	desc := "not completed today"
	if i.Habit.Completed {
		desc = "completed today"
	}
	if i.Habit.ReminderTime != nil {
		desc += fmt.Sprintf(" · reminder %s", *i.Habit.ReminderTime)
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Toggle key.Binding
	Add    key.Binding
	Remind key.Binding
	Quit   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t", "toggle"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Remind: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reminder"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type Model struct {
	store        *habits.Store
	state        sessionState
	keys         KeyMap
	list         list.Model
	form         *huh.Form
	habitForm    *habitFormModel
	reminderForm *reminderFormModel
	remindingID  string
	formError    string
	changes      chan struct{}
	quitting     bool
	width        int
	height       int
}

func NewModel(store *habits.Store) Model {
	keys := DefaultKeyMap()

	l := list.New(habitItems(store), list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Remind}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Remind}
	}

	changes := make(chan struct{}, 1)
	store.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return Model{
		store:   store,
		state:   stateBoard,
		keys:    keys,
		list:    l,
		changes: changes,
	}
}

func habitItems(store *habits.Store) []list.Item {
	display := store.Habits()
	items := make([]list.Item, len(display))
	for i, h := range display {
		items[i] = Item{Habit: h}
	}
	return items
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange turns store pushes into bubbletea messages.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return storeChangedMsg{}
	}
}

func newHabitForm(fm *habitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

func newReminderForm(fm *reminderFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reminder Time (HH:MM, empty to clear)").
				Value(&fm.Time).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if !utils.ValidateTimeFormat(strings.TrimSpace(s)) {
						return fmt.Errorf("time must be HH:MM (24h)")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

package tui

import (
	"strings"
	"testing"

	"github.com/julianstephens/umbral/internal/models"
)

func TestItemTitle(t *testing.T) {
	item := Item{Habit: models.DisplayHabit{Habit: models.Habit{Name: "Leer"}}}
	if got := item.Title(); got != "○ Leer" {
		t.Errorf("incomplete title = %q", got)
	}

	item.Habit.Completed = true
	if got := item.Title(); got != "✓ Leer" {
		t.Errorf("completed title = %q", got)
	}
}

func TestItemDescriptionShowsReminder(t *testing.T) {
	reminderTime := "09:00"
	item := Item{Habit: models.DisplayHabit{
		Habit: models.Habit{Name: "Leer", ReminderTime: &reminderTime},
	}}
	if desc := item.Description(); !strings.Contains(desc, "09:00") {
		t.Errorf("description %q should mention the reminder time", desc)
	}
}

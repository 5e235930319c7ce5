package models

import "time"

// Habit represents a recurring practice to track
type Habit struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OwnerID      string    `json:"owner_id"`
	ReminderTime *string   `json:"reminder_time,omitempty"` // HH:MM, nil means no reminder
	CreatedAt    time.Time `json:"created_at"`
}

// Completion records that one habit was completed on one calendar day.
// Identity is the (HabitID, Day) pair; at most one completion may exist
// per pair.
type Completion struct {
	HabitID   string    `json:"habit_id"`
	Day       string    `json:"day"` // YYYY-MM-DD format
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the document id for a completion, `{habitID}-{day}`. Because
// the id is derived from the identity pair, writing the same completion
// twice is an upsert rather than a duplicate.
func (c Completion) Key() string {
	return CompletionKey(c.HabitID, c.Day)
}

// CompletionKey builds the composite document id for a (habit, day) pair.
func CompletionKey(habitID, day string) string {
	return habitID + "-" + day
}

// DisplayHabit is a Habit annotated with whether it is completed today.
// It is derived on every snapshot change and never persisted.
type DisplayHabit struct {
	Habit
	Completed bool `json:"completed"`
}

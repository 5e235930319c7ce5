package models

// History maps a calendar day (YYYY-MM-DD) to the set of habit ids
// completed on that day. It is a pure derivation of the completion
// collection and holds no independent state.
type History map[string]map[string]bool

// CompletedOn reports whether the habit was completed on the given day.
func (h History) CompletedOn(habitID, day string) bool {
	return h[day][habitID]
}

// Count returns the number of habits completed on the given day.
func (h History) Count(day string) int {
	return len(h[day])
}

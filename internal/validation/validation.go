package validation

import (
	"fmt"
	"strings"

	"github.com/julianstephens/umbral/internal/errors"
	"github.com/julianstephens/umbral/internal/utils"
)

// MaxHabitNameLength caps habit names to keep list rendering and
// notification payloads sane.
const MaxHabitNameLength = 120

// HabitName trims the given name and validates it. It returns the trimmed
// name, or an error wrapping errors.ErrValidation when the name is unusable.
func HabitName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: habit name cannot be empty", errors.ErrValidation)
	}
	if len(trimmed) > MaxHabitNameLength {
		return "", fmt.Errorf("%w: habit name exceeds %d characters", errors.ErrValidation, MaxHabitNameLength)
	}
	return trimmed, nil
}

// ReminderTime validates an HH:MM reminder time. A nil pointer is valid and
// means "no reminder".
func ReminderTime(timeStr *string) error {
	if timeStr == nil {
		return nil
	}
	if !utils.ValidateTimeFormat(*timeStr) {
		return fmt.Errorf("%w: invalid reminder time %q (expected HH:MM)", errors.ErrValidation, *timeStr)
	}
	return nil
}

// Day validates a YYYY-MM-DD calendar day string.
func Day(day string) error {
	if !utils.ValidateDateFormat(day) {
		return fmt.Errorf("%w: invalid date %q (expected YYYY-MM-DD)", errors.ErrValidation, day)
	}
	return nil
}

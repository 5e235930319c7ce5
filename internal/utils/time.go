package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/umbral/internal/constants"
)

// GetTodayInTimezone returns today's date string (YYYY-MM-DD) in the specified timezone.
// This ensures that "today" is determined by the user's configured timezone, not the system timezone.
func GetTodayInTimezone(timezone string) (string, error) {
	now, err := NowInTimezone(timezone)
	if err != nil {
		return "", err
	}
	return now.Format(constants.DateFormat), nil
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ParseClock parses a reminder time string (HH:MM) into hour and minute
// integers.
func ParseClock(timeStr string) (hour, minute int, err error) {
	t, err := time.Parse(constants.TimeFormat, timeStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeStr)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseDay parses a date string (YYYY-MM-DD) into a time.Time at midnight UTC.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", day)
	}
	return t, nil
}

// DayOffset returns the date string n days after the given day. Negative
// offsets step backwards.
func DayOffset(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(constants.DateFormat), nil
}

// DaysElapsedInMonth returns how many days of the given day's month have
// elapsed, counting the day itself (the 1st yields 1).
func DaysElapsedInMonth(day string) (int, error) {
	t, err := ParseDay(day)
	if err != nil {
		return 0, err
	}
	return t.Day(), nil
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := time.Parse(constants.TimeFormat, timeStr)
	return err == nil
}

// ValidateDateFormat checks if the string matches the standard date format.
func ValidateDateFormat(day string) bool {
	_, err := time.Parse(constants.DateFormat, day)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

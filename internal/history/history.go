// Package history derives chart-ready summaries from completion records.
// Everything here is a pure function of its inputs: identical completions
// always produce identical output, regardless of input ordering.
package history

import (
	"github.com/julianstephens/umbral/internal/constants"
	"github.com/julianstephens/umbral/internal/models"
	"github.com/julianstephens/umbral/internal/utils"
)

// weekdayLabels are the chart axis labels, Sunday first to match
// time.Weekday numbering.
var weekdayLabels = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// ByDay groups completions into a date-keyed history. Duplicate
// (habit, day) pairs collapse into a single membership.
func ByDay(completions []models.Completion) models.History {
	h := make(models.History)
	for _, c := range completions {
		day := h[c.Day]
		if day == nil {
			day = make(map[string]bool)
			h[c.Day] = day
		}
		day[c.HabitID] = true
	}
	return h
}

// Point is one bar of the weekly completion chart.
type Point struct {
	Day   string // YYYY-MM-DD
	Label string // short weekday name
	Count int
}

// WeeklySeries returns exactly seven points covering today-6 through today
// inclusive, oldest first. Days without completions yield a zero count
// rather than being omitted.
func WeeklySeries(h models.History, today string) ([]Point, error) {
	points := make([]Point, 0, constants.WeeklySeriesDays)
	for offset := -(constants.WeeklySeriesDays - 1); offset <= 0; offset++ {
		day, err := utils.DayOffset(today, offset)
		if err != nil {
			return nil, err
		}
		t, err := utils.ParseDay(day)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			Day:   day,
			Label: weekdayLabels[t.Weekday()],
			Count: h.Count(day),
		})
	}
	return points, nil
}

// Consistency summarizes month-to-date completions against the possible
// total.
type Consistency struct {
	Completed int `json:"completed"`
	Possible  int `json:"possible"`
}

// Pending returns how many habit-days remain unfilled this month.
func (c Consistency) Pending() int {
	return c.Possible - c.Completed
}

// MonthToDate counts completions over the current month's elapsed days
// (including today) against habitCount × daysElapsed. With zero habits
// both counters are zero: a degenerate all-pending state, never a divide
// by zero for callers computing a ratio.
func MonthToDate(habitCount int, h models.History, today string) (Consistency, error) {
	elapsed, err := utils.DaysElapsedInMonth(today)
	if err != nil {
		return Consistency{}, err
	}
	if habitCount == 0 {
		return Consistency{}, nil
	}

	c := Consistency{Possible: habitCount * elapsed}
	day := today[:len("2006-01")] + "-01"
	for i := 0; i < elapsed; i++ {
		d, err := utils.DayOffset(day, i)
		if err != nil {
			return Consistency{}, err
		}
		c.Completed += h.Count(d)
	}
	return c, nil
}

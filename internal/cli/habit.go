package cli

import (
	"fmt"
	"sort"

	"github.com/julianstephens/umbral/internal/utils"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
	Toggle HabitToggleCmd `cmd:"" help:"Toggle a habit's completion for a day."`
	Today  HabitTodayCmd  `cmd:"" help:"Show today's habit status."`
	Log    HabitLogCmd    `cmd:"" help:"Show completion history."`
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	// Reject duplicates by display name; the store itself only cares
	// about ids.
	if _, err := ctx.Store.GetByName(c.Name); err == nil {
		return fmt.Errorf("habit with name %q already exists", c.Name)
	}

	habit, err := ctx.Store.Add(c.Name)
	if err != nil {
		return err
	}
	if err := ctx.Finish(); err != nil {
		return err
	}

	fmt.Printf("Added habit: %s\n", habit.Name)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	habits := ctx.Store.Habits()
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	for _, habit := range habits {
		reminder := ""
		if habit.ReminderTime != nil {
			reminder = fmt.Sprintf("  (reminder %s)", *habit.ReminderTime)
		}
		fmt.Printf("%s%s\n", habit.Name, reminder)
	}
	return nil
}

type HabitToggleCmd struct {
	Name string `arg:"" help:"Habit name."`
	Date string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	habit, err := ctx.Store.GetByName(c.Name)
	if err != nil {
		return err
	}

	day := c.Date
	if day == "" {
		day = ctx.Store.Today()
	}

	if err := ctx.Store.ToggleOn(habit.ID, day); err != nil {
		return err
	}
	if err := ctx.Finish(); err != nil {
		return err
	}

	if ctx.Store.History().CompletedOn(habit.ID, day) {
		fmt.Printf("Marked habit %q for %s\n", habit.Name, day)
	} else {
		fmt.Printf("Unmarked habit %q for %s\n", habit.Name, day)
	}
	return nil
}

type HabitTodayCmd struct{}

func (c *HabitTodayCmd) Run(ctx *Context) error {
	habits := ctx.Store.Habits()
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	fmt.Printf("Habits for %s:\n", ctx.Store.Today())
	done := 0
	for _, habit := range habits {
		mark := "○"
		if habit.Completed {
			mark = "✓"
			done++
		}
		fmt.Printf("  %s %s\n", mark, habit.Name)
	}
	fmt.Printf("\n%d/%d completed\n", done, len(habits))
	return nil
}

type HabitLogCmd struct {
	Name string `arg:"" optional:"" help:"Habit name (default: all habits)."`
	Days int    `help:"Number of days to show." default:"14"`
}

func (c *HabitLogCmd) Run(ctx *Context) error {
	hist := ctx.Store.History()

	if c.Name != "" {
		habit, err := ctx.Store.GetByName(c.Name)
		if err != nil {
			return err
		}
		today := ctx.Store.Today()
		fmt.Printf("%s:\n", habit.Name)
		for i := c.Days - 1; i >= 0; i-- {
			day, err := utils.DayOffset(today, -i)
			if err != nil {
				return err
			}
			mark := "○"
			if hist.CompletedOn(habit.ID, day) {
				mark = "✓"
			}
			fmt.Printf("  %s %s\n", day, mark)
		}
		return nil
	}

	if len(hist) == 0 {
		fmt.Println("No completions recorded.")
		return nil
	}

	days := make([]string, 0, len(hist))
	for day := range hist {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		fmt.Printf("%s: %d completed\n", day, hist.Count(day))
	}
	return nil
}

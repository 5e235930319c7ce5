package cli

import (
	"fmt"
)

type RemindCmd struct {
	Set   RemindSetCmd   `cmd:"" help:"Set a daily reminder for a habit."`
	Clear RemindClearCmd `cmd:"" help:"Clear a habit's reminder."`
}

type RemindSetCmd struct {
	Name string `arg:"" help:"Habit name."`
	Time string `arg:"" help:"Reminder time in HH:MM (24h)."`
}

func (c *RemindSetCmd) Run(ctx *Context) error {
	habit, err := ctx.Store.GetByName(c.Name)
	if err != nil {
		return err
	}

	timeStr := c.Time
	if err := ctx.Store.SetReminder(habit.ID, &timeStr); err != nil {
		return err
	}

	fmt.Printf("Reminder for %q set to %s daily\n", habit.Name, c.Time)
	return nil
}

type RemindClearCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *RemindClearCmd) Run(ctx *Context) error {
	habit, err := ctx.Store.GetByName(c.Name)
	if err != nil {
		return err
	}

	if err := ctx.Store.SetReminder(habit.ID, nil); err != nil {
		return err
	}

	fmt.Printf("Reminder for %q cleared\n", habit.Name)
	return nil
}

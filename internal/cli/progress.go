package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/umbral/internal/history"
)

type ProgressCmd struct {
	Week  ProgressWeekCmd  `cmd:"" help:"Show completions per day over the last week."`
	Month ProgressMonthCmd `cmd:"" help:"Show month-to-date consistency."`
}

type ProgressWeekCmd struct{}

func (c *ProgressWeekCmd) Run(ctx *Context) error {
	points, err := history.WeeklySeries(ctx.Store.History(), ctx.Store.Today())
	if err != nil {
		return err
	}

	for _, p := range points {
		bar := strings.Repeat("█", p.Count)
		if p.Count == 0 {
			bar = "·"
		}
		fmt.Printf("%s %s  %s %d\n", p.Label, p.Day, bar, p.Count)
	}
	return nil
}

type ProgressMonthCmd struct{}

func (c *ProgressMonthCmd) Run(ctx *Context) error {
	habitCount := len(ctx.Store.Habits())
	consistency, err := history.MonthToDate(habitCount, ctx.Store.History(), ctx.Store.Today())
	if err != nil {
		return err
	}

	if consistency.Possible == 0 {
		fmt.Println("No habits to track this month.")
		return nil
	}

	percent := 100 * consistency.Completed / consistency.Possible
	fmt.Printf("Month to date: %d of %d possible completions (%d%%)\n",
		consistency.Completed, consistency.Possible, percent)
	fmt.Printf("Pending: %d\n", consistency.Pending())
	return nil
}

package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/views"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [habit]",
		Short: "Print streaks and completion rates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var habits []*habit.Habit
			if len(args) == 1 {
				h, err := a.svc.FindHabit(ctx, args[0])
				if err != nil {
					return err
				}
				habits = []*habit.Habit{h}
			} else if habits, err = a.svc.ListHabits(ctx, false); err != nil {
				return err
			}
			if len(habits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no habits yet; try: streakd add read every day")
				return nil
			}

			bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage())
			tracker := a.svc.Tracker()
			for i, h := range habits {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), views.RenderStatsPanel(statsPanel(tracker.Summarize(h), h.TargetCompletionsPerPeriod, bar)))
			}
			return nil
		},
	}
}

func statsPanel(s habit.Summary, target int, bar progress.Model) views.StatsPanelData {
	data := views.StatsPanelData{
		Title:          s.Title,
		Schedule:       s.Schedule,
		CurrentStreak:  s.CurrentStreak,
		BestStreak:     s.BestStreak,
		Total:          s.TotalCompletions,
		AverageStreak:  s.AverageStreak,
		ProtectionLeft: s.ProtectionDaysLeft,
	}
	for _, r := range []struct {
		label string
		value float64
	}{
		{"week", s.WeeklyRate},
		{"month", s.MonthlyRate},
		{"year", s.YearlyRate},
		{"overall", s.CompletionRate},
	} {
		data.Rates = append(data.Rates, views.RateData{
			Label:   r.label,
			Percent: int(r.value*100 + 0.5),
			Bar:     bar.ViewAs(r.value),
		})
	}
	if s.HasTarget {
		data.Target = fmt.Sprintf("%d%% of %d", int(s.TargetProgress*100+0.5), target)
	}
	if s.HasNext {
		data.Next = s.NextOccurrence.String()
	}
	return data
}

func nextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <habit>",
		Short: "List the next due days of a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			h, err := a.svc.FindHabit(ctx, args[0])
			if err != nil {
				return err
			}
			dates, err := a.svc.NextOccurrence(ctx, h.ID, count)
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no upcoming days\n", h.Task.Title)
				return nil
			}
			cal := a.svc.Calendar()
			for _, d := range dates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", d, cal.Time(d).Format("Mon"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of days to list")
	return cmd
}

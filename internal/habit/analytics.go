package habit

import (
	"github.com/sandeepkv93/streakd/internal/calendar"
)

// CompletionRate is total completions over the days since the task was
// created, today included.
func (t Tracker) CompletionRate(h *Habit) float64 {
	today := t.cal.Today()
	days := t.cal.DaysBetween(t.cal.DateOf(h.Task.CreatedAt), today) + 1
	return ratio(h.TotalCompletions, days)
}

// CompletionRateBetween is the share of days in [from, to] with a completion.
func (t Tracker) CompletionRateBetween(h *Habit, from, to calendar.Date) float64 {
	if to.Before(from) {
		return 0
	}
	return ratio(h.countBetween(from, to), t.cal.DaysBetween(from, to)+1)
}

func (t Tracker) WeeklyCompletionRate(h *Habit, d calendar.Date) float64 {
	return t.periodRate(h, t.cal.StartOfWeek(d), t.cal.EndOfWeek(d))
}

func (t Tracker) MonthlyCompletionRate(h *Habit, d calendar.Date) float64 {
	return t.periodRate(h, t.cal.StartOfMonth(d), t.cal.EndOfMonth(d))
}

func (t Tracker) YearlyCompletionRate(h *Habit, d calendar.Date) float64 {
	start := calendar.Date{Year: d.Year, Month: 1, Day: 1}
	end := calendar.Date{Year: d.Year, Month: 12, Day: 31}
	return t.periodRate(h, start, end)
}

// periodRate divides by the days of the period elapsed so far, so a partial
// current period is not penalised. Periods entirely in the future rate 0.
func (t Tracker) periodRate(h *Habit, start, end calendar.Date) float64 {
	today := t.cal.Today()
	if start.After(today) {
		return 0
	}
	if end.After(today) {
		end = today
	}
	return ratio(h.countBetween(start, end), t.cal.DaysBetween(start, end)+1)
}

// AverageStreak is the mean run length without protection bridging. With
// fewer than two completions it falls back to the current streak.
func (t Tracker) AverageStreak(h *Habit) float64 {
	if h.TotalCompletions < 2 {
		return float64(h.CurrentStreak)
	}
	runs := h.Runs(false)
	if len(runs) == 0 {
		return 0
	}
	total := 0
	for _, r := range runs {
		total += r.Length
	}
	return float64(total) / float64(len(runs))
}

// TargetProgress compares completions in d's week with the weekly target.
// ok is false when the habit has no target.
func (t Tracker) TargetProgress(h *Habit, d calendar.Date) (progress float64, ok bool) {
	if h.TargetCompletionsPerPeriod <= 0 {
		return 0, false
	}
	n := h.countBetween(t.cal.StartOfWeek(d), t.cal.EndOfWeek(d))
	return ratio(n, h.TargetCompletionsPerPeriod), true
}

type Summary struct {
	HabitID            string
	Title              string
	Schedule           string
	CurrentStreak      int
	BestStreak         int
	TotalCompletions   int
	CompletionRate     float64
	WeeklyRate         float64
	MonthlyRate        float64
	YearlyRate         float64
	AverageStreak      float64
	ProtectionDaysLeft int
	TargetProgress     float64
	HasTarget          bool
	CompletedToday     bool
	NextOccurrence     calendar.Date
	HasNext            bool
}

// Summarize bundles the derived figures the UI and API display.
func (t Tracker) Summarize(h *Habit) Summary {
	today := t.cal.Today()
	s := Summary{
		HabitID:            h.ID,
		Title:              h.Task.Title,
		CurrentStreak:      h.CurrentStreak,
		BestStreak:         h.BestStreak,
		TotalCompletions:   h.TotalCompletions,
		CompletionRate:     t.CompletionRate(h),
		WeeklyRate:         t.WeeklyCompletionRate(h, today),
		MonthlyRate:        t.MonthlyCompletionRate(h, today),
		YearlyRate:         t.YearlyCompletionRate(h, today),
		AverageStreak:      t.AverageStreak(h),
		ProtectionDaysLeft: t.AvailableProtectionDays(h),
		CompletedToday:     h.IsCompleted(today),
	}
	s.TargetProgress, s.HasTarget = t.TargetProgress(h, today)
	if h.Rule != nil {
		s.Schedule = h.Rule.Describe()
		s.NextOccurrence, s.HasNext = h.Rule.NextOccurrence(t.cal, today)
	}
	return s
}

func ratio(n, d int) float64 {
	if d <= 0 || n <= 0 {
		return 0
	}
	r := float64(n) / float64(d)
	if r > 1 {
		return 1
	}
	return r
}

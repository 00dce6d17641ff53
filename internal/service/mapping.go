package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/storage"
)

func taskToRow(t model.Task) storage.Task {
	return storage.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		State:       string(t.State),
		Priority:    string(t.Priority),
		CategoryID:  t.CategoryID,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func taskFromRow(row storage.Task) model.Task {
	return model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		State:       model.TaskState(row.State),
		Priority:    model.Priority(row.Priority),
		CategoryID:  row.CategoryID,
		Metadata:    row.Metadata,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
	}
}

func ruleToRow(r *model.RecurrenceRule, id, taskID string, createdAt time.Time) storage.RecurrenceRule {
	row := storage.RecurrenceRule{
		ID:            id,
		TaskID:        taskID,
		Frequency:     string(r.Frequency()),
		IntervalValue: r.Interval(),
		AnchorDate:    r.Anchor().String(),
		EndDate:       r.EndDate().String(),
		CreatedAt:     createdAt,
	}
	switch s := r.Schedule().(type) {
	case model.Weekly:
		nums := make([]string, 0, len(s.Days))
		for _, d := range s.Days {
			nums = append(nums, strconv.Itoa(calendar.WeekdayNumber(d)))
		}
		row.Weekdays = strings.Join(nums, ",")
	case model.Monthly:
		row.DayOfMonth = s.DayOfMonth
	case model.Custom:
		row.CustomDates = joinDates(s.Dates)
	}
	return row
}

func ruleFromRow(row storage.RecurrenceRule, exceptions []string) (*model.RecurrenceRule, error) {
	var schedule model.Schedule
	switch model.Frequency(row.Frequency) {
	case model.FrequencyDaily:
		schedule = model.Daily{Interval: row.IntervalValue}
	case model.FrequencyWeekly:
		days, err := parseWeekdays(row.Weekdays)
		if err != nil {
			return nil, err
		}
		schedule = model.Weekly{Interval: row.IntervalValue, Days: days}
	case model.FrequencyMonthly:
		schedule = model.Monthly{Interval: row.IntervalValue, DayOfMonth: row.DayOfMonth}
	case model.FrequencyCustom:
		dates, err := parseDates(splitList(row.CustomDates))
		if err != nil {
			return nil, err
		}
		schedule = model.Custom{Interval: row.IntervalValue, Dates: dates}
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFrequency, row.Frequency)
	}

	anchor, err := calendar.ParseDate(row.AnchorDate)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(row.EndDate)
	if err != nil {
		return nil, err
	}
	rule, err := model.NewRecurrenceRule(schedule, anchor, end)
	if err != nil {
		return nil, err
	}
	excepted, err := parseDates(exceptions)
	if err != nil {
		return nil, err
	}
	for _, d := range excepted {
		rule.AddException(d)
	}
	return rule, nil
}

func stateFromRecord(rec storage.HabitRecord) (habit.State, error) {
	rule, err := ruleFromRow(rec.Rule, rec.Exceptions)
	if err != nil {
		return habit.State{}, err
	}
	completions, err := parseDates(rec.Completions)
	if err != nil {
		return habit.State{}, err
	}
	protections, err := parseDates(rec.Protections)
	if err != nil {
		return habit.State{}, err
	}
	lastProtection, err := parseOptionalDate(rec.Habit.LastProtectionDate)
	if err != nil {
		return habit.State{}, err
	}
	return habit.State{
		ID:                         rec.Habit.ID,
		Task:                       taskFromRow(rec.Task),
		Rule:                       rule,
		Completions:                completions,
		Protections:                protections,
		CurrentStreak:              rec.Habit.CurrentStreak,
		BestStreak:                 rec.Habit.BestStreak,
		ProtectionDaysUsed:         rec.Habit.ProtectionDaysUsed,
		LastProtectionDate:         lastProtection,
		TargetCompletionsPerPeriod: rec.Habit.TargetPerPeriod,
	}, nil
}

// recordFromHabit writes h back over the identifiers and timestamps of the
// record it was loaded from.
func recordFromHabit(h *habit.Habit, base storage.HabitRecord, now time.Time) storage.HabitRecord {
	rec := base
	rec.Task = taskToRow(h.Task)
	rec.Rule = ruleToRow(h.Rule, base.Rule.ID, base.Rule.TaskID, base.Rule.CreatedAt)
	rec.Exceptions = formatDates(h.Rule.Exceptions())
	rec.Completions = formatDates(h.CompletionDates())
	rec.Protections = formatDates(h.ProtectedDates())
	rec.Habit.CurrentStreak = h.CurrentStreak
	rec.Habit.BestStreak = h.BestStreak
	rec.Habit.TotalCompletions = h.TotalCompletions
	rec.Habit.ProtectionDaysUsed = h.ProtectionDaysUsed
	rec.Habit.LastProtectionDate = h.LastProtectionDate.String()
	rec.Habit.TargetPerPeriod = h.TargetCompletionsPerPeriod
	rec.Habit.UpdatedAt = now.UTC()
	return rec
}

func parseWeekdays(raw string) ([]time.Weekday, error) {
	parts := splitList(raw)
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: weekday %q", model.ErrInvalidRule, p)
		}
		d, ok := calendar.WeekdayFromNumber(n)
		if !ok {
			return nil, fmt.Errorf("%w: weekday %d", model.ErrInvalidRule, n)
		}
		out = append(out, d)
	}
	return out, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDates(raw []string) ([]calendar.Date, error) {
	out := make([]calendar.Date, 0, len(raw))
	for _, r := range raw {
		d, err := calendar.ParseDate(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func parseOptionalDate(raw string) (calendar.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return calendar.Date{}, nil
	}
	return calendar.ParseDate(raw)
}

func formatDates(dates []calendar.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}

func joinDates(dates []calendar.Date) string {
	return strings.Join(formatDates(dates), ",")
}

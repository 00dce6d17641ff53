package habit

import (
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/model"
)

// Tracker applies ledger mutations and derives streaks against one
// calendar. It holds no habit state; callers serialise access per habit.
type Tracker struct {
	cal calendar.Calendar
}

func NewTracker(cal calendar.Calendar) Tracker {
	return Tracker{cal: cal}
}

func (t Tracker) Calendar() calendar.Calendar { return t.cal }

// New creates a habit with an empty ledger.
func (t Tracker) New(id string, task model.Task, rule *model.RecurrenceRule, target int) (*Habit, error) {
	return t.Restore(State{ID: id, Task: task, Rule: rule, TargetCompletionsPerPeriod: target})
}

// Restore rebuilds a habit from persisted state. Streak caches are
// recomputed, and a task left Done from an earlier day is reopened.
func (t Tracker) Restore(s State) (*Habit, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	h := &Habit{
		ID:                         s.ID,
		Task:                       s.Task,
		Rule:                       s.Rule,
		ProtectionDaysUsed:         s.ProtectionDaysUsed,
		LastProtectionDate:         s.LastProtectionDate,
		TargetCompletionsPerPeriod: s.TargetCompletionsPerPeriod,
		completions:                make(map[calendar.Date]struct{}, len(s.Completions)),
		protected:                  make(map[calendar.Date]struct{}, len(s.Protections)),
	}
	for _, d := range s.Completions {
		h.completions[d] = struct{}{}
	}
	for _, d := range s.Protections {
		h.protected[d] = struct{}{}
	}
	today := t.cal.Today()
	if h.Task.State == model.TaskStateDone && !h.IsCompleted(today) {
		h.Task.Reopen()
	}
	t.recompute(h, today)
	return h, nil
}

// MarkCompleted records a completion on the calendar day of on. It reports
// false when that day was already recorded.
func (t Tracker) MarkCompleted(h *Habit, on time.Time) bool {
	d := t.cal.DateOf(on)
	today := t.cal.Today()
	if h.IsCompleted(d) {
		return false
	}
	if h.completions == nil {
		h.completions = make(map[calendar.Date]struct{})
	}
	h.completions[d] = struct{}{}
	if d.Equal(today) && h.Task.State != model.TaskStateArchived {
		h.Task.Complete(on)
	}
	t.recompute(h, today)
	return true
}

// MarkIncomplete removes the completion on the calendar day of on, if any.
func (t Tracker) MarkIncomplete(h *Habit, on time.Time) bool {
	d := t.cal.DateOf(on)
	today := t.cal.Today()
	if !h.IsCompleted(d) {
		return false
	}
	delete(h.completions, d)
	if d.Equal(today) {
		h.Task.Reopen()
	}
	t.recompute(h, today)
	return true
}

func (t Tracker) RecomputeStreaks(h *Habit) {
	t.recompute(h, t.cal.Today())
}

func (t Tracker) recompute(h *Habit, today calendar.Date) {
	h.TotalCompletions = len(h.completions)
	h.BestStreak = 0
	for _, run := range h.Runs(true) {
		if run.Length > h.BestStreak {
			h.BestStreak = run.Length
		}
	}
	h.CurrentStreak = currentStreak(h, today)
}

// currentStreak counts back from today. A pending today does not break the
// streak, so counting starts at yesterday when today is not yet completed.
// A protected day is skipped when the day before it was completed.
func currentStreak(h *Habit, today calendar.Date) int {
	cursor := today
	if !h.IsCompleted(cursor) {
		cursor = cursor.AddDays(-1)
	}
	n := 0
	for {
		switch {
		case h.IsCompleted(cursor):
			n++
		case h.IsProtected(cursor) && h.IsCompleted(cursor.AddDays(-1)):
		default:
			return n
		}
		cursor = cursor.AddDays(-1)
	}
}

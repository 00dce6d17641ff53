package habit

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/model"
)

var ErrInvalidHabit = errors.New("habit: invalid habit")

// Habit owns exactly one Task. The completion ledger and the set of
// protected dates are private; streak fields are caches rebuilt by
// Tracker.RecomputeStreaks after every mutation.
type Habit struct {
	ID   string
	Task model.Task
	Rule *model.RecurrenceRule

	CurrentStreak    int
	BestStreak       int
	TotalCompletions int

	ProtectionDaysUsed int
	LastProtectionDate calendar.Date

	// TargetCompletionsPerPeriod is a weekly goal read by analytics only.
	// Zero means no target.
	TargetCompletionsPerPeriod int

	completions map[calendar.Date]struct{}
	protected   map[calendar.Date]struct{}
}

// State is the persisted shape of a habit. CurrentStreak and BestStreak are
// stored as caches and ignored by Restore.
type State struct {
	ID                         string
	Task                       model.Task
	Rule                       *model.RecurrenceRule
	Completions                []calendar.Date
	Protections                []calendar.Date
	CurrentStreak              int
	BestStreak                 int
	ProtectionDaysUsed         int
	LastProtectionDate         calendar.Date
	TargetCompletionsPerPeriod int
}

func (s State) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidHabit)
	}
	if err := s.Task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHabit, err)
	}
	if s.Rule == nil {
		return fmt.Errorf("%w: recurrence rule is required", ErrInvalidHabit)
	}
	if s.ProtectionDaysUsed < 0 || s.ProtectionDaysUsed > MaxProtectionDaysPerMonth {
		return fmt.Errorf("%w: protection days used %d", ErrInvalidHabit, s.ProtectionDaysUsed)
	}
	if s.TargetCompletionsPerPeriod < 0 {
		return fmt.Errorf("%w: target %d", ErrInvalidHabit, s.TargetCompletionsPerPeriod)
	}
	for _, d := range s.Completions {
		if d.IsZero() {
			return fmt.Errorf("%w: zero completion date", ErrInvalidHabit)
		}
	}
	return nil
}

// State snapshots the habit for persistence.
func (h *Habit) State() State {
	return State{
		ID:                         h.ID,
		Task:                       h.Task,
		Rule:                       h.Rule,
		Completions:                h.CompletionDates(),
		Protections:                h.ProtectedDates(),
		CurrentStreak:              h.CurrentStreak,
		BestStreak:                 h.BestStreak,
		ProtectionDaysUsed:         h.ProtectionDaysUsed,
		LastProtectionDate:         h.LastProtectionDate,
		TargetCompletionsPerPeriod: h.TargetCompletionsPerPeriod,
	}
}

func (h *Habit) IsCompleted(d calendar.Date) bool {
	_, ok := h.completions[d]
	return ok
}

// IsProtected reports whether a protection day was registered for d.
func (h *Habit) IsProtected(d calendar.Date) bool {
	_, ok := h.protected[d]
	return ok
}

// CompletionDates returns the ledger in ascending order.
func (h *Habit) CompletionDates() []calendar.Date {
	return sortedDates(h.completions)
}

func (h *Habit) ProtectedDates() []calendar.Date {
	return sortedDates(h.protected)
}

// CompletionDatesInRange filters the ledger to [from, to], ascending.
func (h *Habit) CompletionDatesInRange(from, to calendar.Date) []calendar.Date {
	out := []calendar.Date{}
	if to.Before(from) {
		return out
	}
	for _, d := range h.CompletionDates() {
		if d.Before(from) {
			continue
		}
		if d.After(to) {
			break
		}
		out = append(out, d)
	}
	return out
}

func (h *Habit) countBetween(from, to calendar.Date) int {
	n := 0
	for d := range h.completions {
		if !d.Before(from) && !d.After(to) {
			n++
		}
	}
	return n
}

// StreakOnDate is the length of the run of completed days ending at d.
// Protection days are not applied here; a missing day always ends the run.
func (h *Habit) StreakOnDate(d calendar.Date) int {
	n := 0
	for h.IsCompleted(d) {
		n++
		d = d.AddDays(-1)
	}
	return n
}

// Run is a maximal chain of completions. Length counts completed days only;
// Bridged counts protected days inside the chain.
type Run struct {
	Start   calendar.Date
	End     calendar.Date
	Length  int
	Bridged int
}

// Runs groups the ledger into chains of consecutive days. With bridge set,
// a single missed day continues the chain when a protection day was
// registered for it.
func (h *Habit) Runs(bridge bool) []Run {
	dates := h.CompletionDates()
	runs := make([]Run, 0)
	for i, d := range dates {
		if i > 0 {
			prev := dates[i-1]
			cur := &runs[len(runs)-1]
			switch gap := prev.DaysUntil(d); {
			case gap == 1:
				cur.End = d
				cur.Length++
				continue
			case bridge && gap == 2 && h.IsProtected(prev.AddDays(1)):
				cur.End = d
				cur.Length++
				cur.Bridged++
				continue
			}
		}
		runs = append(runs, Run{Start: d, End: d, Length: 1})
	}
	return runs
}

func sortedDates(set map[calendar.Date]struct{}) []calendar.Date {
	out := make([]calendar.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	slices.SortFunc(out, calendar.Date.Compare)
	return out
}

package habit

import (
	"math"
	"testing"
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompletionRateEvenlySpread(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 9)
	complete(tr, h, 0, 2, 4, 6, 8)
	if got := tr.CompletionRate(h); !approx(got, 0.5) {
		t.Fatalf("expected 0.5, got %f", got)
	}
	if got := tr.AverageStreak(h); !approx(got, 1) {
		t.Fatalf("expected average streak 1, got %f", got)
	}
}

func TestCompletionRateIsClamped(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 0)
	complete(tr, h, 0, 1, 2)
	if got := tr.CompletionRate(h); got != 1 {
		t.Fatalf("expected clamp to 1, got %f", got)
	}
	empty := newHabit(t, tr, 3)
	if got := tr.CompletionRate(empty); got != 0 {
		t.Fatalf("expected 0 for empty ledger, got %f", got)
	}
}

func TestPeriodRatesUseElapsedDays(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 400)
	for d := (calendar.Date{Year: 2026, Month: time.October, Day: 1}); d.Day <= 10; d = d.AddDays(1) {
		tr.MarkCompleted(h, at(d))
	}
	for d := (calendar.Date{Year: 2026, Month: time.September, Day: 1}); d.Day <= 15; d = d.AddDays(1) {
		tr.MarkCompleted(h, at(d))
	}
	if got := tr.MonthlyCompletionRate(h, today); !approx(got, 10.0/19.0) {
		t.Fatalf("october rate = %f", got)
	}
	if got := tr.MonthlyCompletionRate(h, calendar.Date{Year: 2026, Month: time.September, Day: 20}); !approx(got, 0.5) {
		t.Fatalf("september rate = %f", got)
	}
	if got := tr.MonthlyCompletionRate(h, calendar.Date{Year: 2026, Month: time.November, Day: 1}); got != 0 {
		t.Fatalf("future month should rate 0, got %f", got)
	}
	if got := tr.YearlyCompletionRate(h, today); !approx(got, 25.0/292.0) {
		t.Fatalf("yearly rate = %f", got)
	}
}

func TestWeeklyRateHonoursWeekStart(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 30)
	complete(tr, h, 0, 1, 2)
	// Sunday-first week began yesterday: two days elapsed, both completed.
	if got := tr.WeeklyCompletionRate(h, today); got != 1 {
		t.Fatalf("expected full week rate, got %f", got)
	}
	mondayFirst := NewTracker(calendar.New(
		calendar.WithFirstWeekday(time.Monday),
		calendar.WithClock(calendar.FixedClock{At: at(today)}),
	))
	if got := mondayFirst.WeeklyCompletionRate(h, today); got != 1 {
		t.Fatalf("expected monday-first rate 1, got %f", got)
	}
	if got := mondayFirst.WeeklyCompletionRate(h, ago(1)); !approx(got, 2.0/7.0) {
		t.Fatalf("previous monday-first week rate = %f", got)
	}
}

func TestCompletionRateBetween(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 30)
	complete(tr, h, 1, 2, 10)
	if got := tr.CompletionRateBetween(h, ago(3), ago(0)); !approx(got, 0.5) {
		t.Fatalf("expected 0.5, got %f", got)
	}
	if got := tr.CompletionRateBetween(h, ago(0), ago(3)); got != 0 {
		t.Fatalf("reversed range should rate 0, got %f", got)
	}
}

func TestAverageStreak(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 30)
	complete(tr, h, 0)
	if got := tr.AverageStreak(h); got != 1 {
		t.Fatalf("single completion should fall back to current streak, got %f", got)
	}
	complete(tr, h, 1, 2, 5, 6, 9)
	// Runs: 3, 2, 1.
	if got := tr.AverageStreak(h); !approx(got, 2) {
		t.Fatalf("expected 2, got %f", got)
	}
	tr.UseProtectionDay(h, at(ago(4)))
	if got := tr.AverageStreak(h); !approx(got, 2) {
		t.Fatalf("average streak must ignore protection, got %f", got)
	}
}

func TestTargetProgress(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 30)
	if _, ok := tr.TargetProgress(h, today); ok {
		t.Fatal("habit without target should report ok=false")
	}
	h.TargetCompletionsPerPeriod = 4
	complete(tr, h, 0, 1)
	got, ok := tr.TargetProgress(h, today)
	if !ok || !approx(got, 0.5) {
		t.Fatalf("expected 0.5 progress, got %f ok=%v", got, ok)
	}
}

func TestSummarize(t *testing.T) {
	tr := trackerAt(today)
	h := newHabit(t, tr, 9)
	complete(tr, h, 0, 1)
	s := tr.Summarize(h)
	if s.HabitID != "habit-1" || s.Title != "Meditate" || s.CurrentStreak != 2 || !s.CompletedToday {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !s.HasNext || !s.NextOccurrence.Equal(today.AddDays(1)) {
		t.Fatalf("expected next occurrence tomorrow, got %s", s.NextOccurrence)
	}
	if s.ProtectionDaysLeft != 2 || s.Schedule != "every day" {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

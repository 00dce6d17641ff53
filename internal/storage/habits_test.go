package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sampleRecord(t *testing.T) HabitRecord {
	t.Helper()
	now := parseRFC3339(t, "2026-10-01T08:00:00Z")
	return HabitRecord{
		Task: Task{
			ID:        "task-h1",
			Title:     "Journal",
			State:     "Planned",
			Priority:  "Medium",
			CreatedAt: now,
		},
		Rule: RecurrenceRule{
			ID:            "rule-h1",
			TaskID:        "task-h1",
			Frequency:     "daily",
			IntervalValue: 1,
			AnchorDate:    "2026-10-01",
			CreatedAt:     now,
		},
		Habit: Habit{
			ID:              "habit-1",
			TaskID:          "task-h1",
			RuleID:          "rule-h1",
			TargetPerPeriod: 5,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Completions: []string{"2026-10-03", "2026-10-02"},
	}
}

func TestHabitRecordRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	rec := sampleRecord(t)
	if err := repo.InsertHabitRecord(ctx, rec); err != nil {
		t.Fatalf("insert habit record: %v", err)
	}

	got, err := repo.LoadHabitRecord(ctx, rec.Habit.ID)
	if err != nil {
		t.Fatalf("load habit record: %v", err)
	}
	if got.Task.Title != "Journal" || got.Rule.Frequency != "daily" || got.Habit.TargetPerPeriod != 5 {
		t.Fatalf("unexpected record: %#v", got)
	}
	if len(got.Completions) != 2 || got.Completions[0] != "2026-10-02" {
		t.Fatalf("completions not loaded in order: %v", got.Completions)
	}

	got.Completions = append(got.Completions, "2026-10-04", "2026-10-04")
	got.Protections = []string{"2026-10-05"}
	got.Exceptions = []string{"2026-10-10"}
	got.Habit.CurrentStreak = 3
	got.Habit.BestStreak = 3
	got.Habit.TotalCompletions = 3
	got.Habit.ProtectionDaysUsed = 1
	got.Habit.LastProtectionDate = "2026-10-05"
	if err := repo.SaveHabitRecord(ctx, got); err != nil {
		t.Fatalf("save habit record: %v", err)
	}

	again, err := repo.LoadHabitRecord(ctx, rec.Habit.ID)
	if err != nil {
		t.Fatalf("reload habit record: %v", err)
	}
	if len(again.Completions) != 3 {
		t.Fatalf("duplicate day should collapse, got %v", again.Completions)
	}
	if len(again.Protections) != 1 || len(again.Exceptions) != 1 {
		t.Fatalf("unexpected day sets: protections=%v exceptions=%v", again.Protections, again.Exceptions)
	}
	if again.Habit.ProtectionDaysUsed != 1 || again.Habit.LastProtectionDate != "2026-10-05" || again.Habit.BestStreak != 3 {
		t.Fatalf("habit row not updated: %#v", again.Habit)
	}
}

func TestSaveHabitRecordIsAtomic(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	rec := sampleRecord(t)
	if err := repo.InsertHabitRecord(ctx, rec); err != nil {
		t.Fatalf("insert habit record: %v", err)
	}

	bad := rec
	bad.Completions = []string{"2026-10-09"}
	bad.Habit.ProtectionDaysUsed = 5
	if err := repo.SaveHabitRecord(ctx, bad); err == nil {
		t.Fatal("expected check constraint failure")
	}

	got, err := repo.LoadHabitRecord(ctx, rec.Habit.ID)
	if err != nil {
		t.Fatalf("load habit record: %v", err)
	}
	if len(got.Completions) != 2 {
		t.Fatalf("failed save leaked completions: %v", got.Completions)
	}
}

func TestDeleteTaskCascadesHabit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	rec := sampleRecord(t)
	if err := repo.InsertHabitRecord(ctx, rec); err != nil {
		t.Fatalf("insert habit record: %v", err)
	}
	if err := repo.DeleteTask(ctx, rec.Task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := repo.GetHabit(ctx, rec.Habit.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected habit removed with its task, got %v", err)
	}
	if _, err := repo.GetRecurrence(ctx, rec.Rule.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rule removed with its task, got %v", err)
	}
	days, err := listDays(ctx, repo.DB(), `SELECT day FROM habit_completions WHERE habit_id = ?`, rec.Habit.ID)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("orphaned completions: %v", days)
	}
}

func TestListHabitsFiltersByTaskState(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	first := sampleRecord(t)
	if err := repo.InsertHabitRecord(ctx, first); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second := sampleRecord(t)
	second.Task.ID, second.Rule.ID, second.Habit.ID = "task-h2", "rule-h2", "habit-2"
	second.Rule.TaskID, second.Habit.TaskID, second.Habit.RuleID = "task-h2", "task-h2", "rule-h2"
	second.Task.State = "Archived"
	second.Task.CreatedAt = second.Task.CreatedAt.Add(time.Minute)
	if err := repo.InsertHabitRecord(ctx, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	all, err := repo.ListHabits(ctx, HabitListFilter{})
	if err != nil {
		t.Fatalf("list habits: %v", err)
	}
	if len(all) != 2 || all[0].ID != "habit-1" {
		t.Fatalf("unexpected habit list: %#v", all)
	}
	archived, err := repo.ListHabits(ctx, HabitListFilter{TaskState: "Archived"})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != "habit-2" {
		t.Fatalf("unexpected archived list: %#v", archived)
	}
	if _, err := repo.LoadHabitRecord(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

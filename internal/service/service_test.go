package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/scheduler"
	"github.com/sandeepkv93/streakd/internal/storage"
)

var now = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func setupService(t *testing.T, opts ...Option) (*HabitService, *storage.SQLiteRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "streakd-service.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	cal := calendar.New(calendar.WithClock(calendar.FixedClock{At: now}))
	return New(repo, habit.NewTracker(cal), opts...), repo
}

func sequentialIDs() func() string {
	n := 0
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func date(t *testing.T, raw string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func createDaily(t *testing.T, svc *HabitService, title string) *habit.Habit {
	t.Helper()
	h, err := svc.CreateHabit(context.Background(), CreateHabitInput{
		Title:    title,
		Schedule: model.Daily{Interval: 1},
		Anchor:   date(t, "2026-10-01"),
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	return h
}

func TestCreateAndGetHabit(t *testing.T) {
	svc, _ := setupService(t, WithIDGenerator(sequentialIDs()))
	ctx := context.Background()

	created, err := svc.CreateHabit(ctx, CreateHabitInput{
		Title:    "  Stretch ",
		Schedule: model.Weekly{Interval: 1, Days: []time.Weekday{time.Monday, time.Thursday}},
		Target:   2,
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if created.ID != "id-002" || created.Task.ID != "id-001" {
		t.Fatalf("unexpected ids: habit=%s task=%s", created.ID, created.Task.ID)
	}

	got, err := svc.GetHabit(ctx, created.ID)
	if err != nil {
		t.Fatalf("get habit: %v", err)
	}
	if got.Task.Title != "Stretch" || got.Task.State != model.TaskStatePlanned || got.Task.Priority != model.PriorityMedium {
		t.Fatalf("unexpected task: %+v", got.Task)
	}
	if got.Rule.Describe() != created.Rule.Describe() {
		t.Fatalf("rule changed across storage: %q vs %q", got.Rule.Describe(), created.Rule.Describe())
	}
	if !got.Rule.Anchor().Equal(date(t, "2026-10-19")) {
		t.Fatalf("anchor should default to today, got %s", got.Rule.Anchor())
	}
	if got.TargetCompletionsPerPeriod != 2 {
		t.Fatalf("unexpected target: %d", got.TargetCompletionsPerPeriod)
	}
}

func TestCreateHabitValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	if _, err := svc.CreateHabit(ctx, CreateHabitInput{Title: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err := svc.CreateHabit(ctx, CreateHabitInput{Title: "Run", Schedule: model.Daily{Interval: 0}})
	if !errors.Is(err, model.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	all, err := svc.ListHabits(ctx, true)
	if err != nil || len(all) != 0 {
		t.Fatalf("rejected habits must not be stored: %v %d", err, len(all))
	}
}

func TestMarkCompletedPersistsStreak(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Read")

	for _, raw := range []string{"2026-10-17", "2026-10-18", "2026-10-19"} {
		if _, changed, err := svc.MarkCompleted(ctx, h.ID, date(t, raw)); err != nil || !changed {
			t.Fatalf("mark %s: changed=%v err=%v", raw, changed, err)
		}
	}
	_, changed, err := svc.MarkCompleted(ctx, h.ID, date(t, "2026-10-18"))
	if err != nil || changed {
		t.Fatalf("duplicate completion should be a no-op: changed=%v err=%v", changed, err)
	}

	got, err := svc.GetHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("get habit: %v", err)
	}
	if got.CurrentStreak != 3 || got.BestStreak != 3 || got.TotalCompletions != 3 {
		t.Fatalf("unexpected streaks: current=%d best=%d total=%d", got.CurrentStreak, got.BestStreak, got.TotalCompletions)
	}
	if got.Task.State != model.TaskStateDone || got.Task.CompletedAt == nil {
		t.Fatalf("completing today should mark the task done: %+v", got.Task)
	}
}

func TestMarkCompletedRejectsFutureDates(t *testing.T) {
	svc, _ := setupService(t)
	h := createDaily(t, svc, "Read")
	_, _, err := svc.MarkCompleted(context.Background(), h.ID, date(t, "2026-10-20"))
	if !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
	if _, _, err := svc.MarkCompleted(context.Background(), "missing", date(t, "2026-10-19")); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestMarkIncompleteReopensTask(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Read")
	for _, raw := range []string{"2026-10-18", "2026-10-19"} {
		if _, _, err := svc.MarkCompleted(ctx, h.ID, date(t, raw)); err != nil {
			t.Fatalf("mark %s: %v", raw, err)
		}
	}

	got, changed, err := svc.MarkIncomplete(ctx, h.ID, date(t, "2026-10-19"))
	if err != nil || !changed {
		t.Fatalf("mark incomplete: changed=%v err=%v", changed, err)
	}
	if got.Task.State != model.TaskStatePlanned || got.CurrentStreak != 1 {
		t.Fatalf("unexpected habit after undo: state=%s streak=%d", got.Task.State, got.CurrentStreak)
	}
	if _, changed, _ := svc.MarkIncomplete(ctx, h.ID, date(t, "2026-10-19")); changed {
		t.Fatal("second undo should be a no-op")
	}
}

func TestUseProtectionDayQuota(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Meditate")
	for _, raw := range []string{"2026-10-15", "2026-10-17", "2026-10-18"} {
		if _, _, err := svc.MarkCompleted(ctx, h.ID, date(t, raw)); err != nil {
			t.Fatalf("mark %s: %v", raw, err)
		}
	}

	got, err := svc.UseProtectionDay(ctx, h.ID, date(t, "2026-10-16"))
	if err != nil {
		t.Fatalf("protect: %v", err)
	}
	if got.CurrentStreak != 3 {
		t.Fatalf("protected gap should keep the streak, got %d", got.CurrentStreak)
	}
	if _, err := svc.UseProtectionDay(ctx, h.ID, date(t, "2026-10-16")); err != nil {
		t.Fatalf("re-protecting the same day should succeed: %v", err)
	}
	if _, err := svc.UseProtectionDay(ctx, h.ID, date(t, "2026-10-10")); err != nil {
		t.Fatalf("second protection: %v", err)
	}
	if _, err := svc.UseProtectionDay(ctx, h.ID, date(t, "2026-10-11")); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}

	reloaded, err := svc.GetHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("get habit: %v", err)
	}
	if reloaded.ProtectionDaysUsed != 2 || reloaded.IsProtected(date(t, "2026-10-11")) {
		t.Fatalf("rejected protection must not persist: used=%d", reloaded.ProtectionDaysUsed)
	}
	if left := svc.Tracker().AvailableProtectionDays(reloaded); left != 0 {
		t.Fatalf("expected no protection days left, got %d", left)
	}
	if _, err := svc.UseProtectionDay(ctx, h.ID, date(t, "2026-10-21")); !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestExceptionsAndNextOccurrence(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h, err := svc.CreateHabit(ctx, CreateHabitInput{
		Title:    "Review finances",
		Schedule: model.Weekly{Interval: 1, Days: []time.Weekday{time.Monday}},
		Anchor:   date(t, "2026-10-05"),
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := svc.AddException(ctx, h.ID, date(t, "2026-10-26")); err != nil {
		t.Fatalf("add exception: %v", err)
	}

	next, err := svc.NextOccurrence(ctx, h.ID, 3)
	if err != nil {
		t.Fatalf("next occurrence: %v", err)
	}
	want := []string{"2026-10-19", "2026-11-02", "2026-11-09"}
	if len(next) != len(want) {
		t.Fatalf("unexpected occurrences: %v", next)
	}
	for i := range want {
		if next[i].String() != want[i] {
			t.Fatalf("occurrence %d = %s, want %s", i, next[i], want[i])
		}
	}

	if _, _, err := svc.MarkCompleted(ctx, h.ID, date(t, "2026-10-19")); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if _, err := svc.RemoveException(ctx, h.ID, date(t, "2026-10-26")); err != nil {
		t.Fatalf("remove exception: %v", err)
	}
	next, err = svc.NextOccurrence(ctx, h.ID, 1)
	if err != nil || len(next) != 1 || next[0].String() != "2026-10-26" {
		t.Fatalf("expected 2026-10-26 once today is done and the exception removed, got %v %v", next, err)
	}
}

func TestNextOccurrenceKeepsAnchorWeekday(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h, err := svc.CreateHabit(ctx, CreateHabitInput{
		Title:    "Call home",
		Schedule: model.Weekly{Interval: 1},
		Anchor:   date(t, "2026-10-07"),
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	next, err := svc.NextOccurrence(ctx, h.ID, 3)
	if err != nil {
		t.Fatalf("next occurrence: %v", err)
	}
	want := []string{"2026-10-21", "2026-10-28", "2026-11-04"}
	if len(next) != len(want) {
		t.Fatalf("unexpected occurrences: %v", next)
	}
	for i := range want {
		if next[i].String() != want[i] || next[i].Weekday() != time.Wednesday {
			t.Fatalf("occurrence %d = %s, want %s", i, next[i], want[i])
		}
	}
}

func TestListingSizesAreCapped(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Stretch")

	if _, err := svc.NextOccurrence(ctx, h.ID, MaxOccurrenceCount+1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for an oversized count, got %v", err)
	}
	next, err := svc.NextOccurrence(ctx, h.ID, MaxOccurrenceCount)
	if err != nil || len(next) != MaxOccurrenceCount {
		t.Fatalf("expected %d occurrences, got %d %v", MaxOccurrenceCount, len(next), err)
	}
	if _, _, err := svc.Heatmap(ctx, h.ID, MaxHeatmapWeeks+1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized weeks, got %v", err)
	}
	from, to := svc.HeatmapRange(1 << 40)
	if days := svc.Calendar().DaysBetween(from, to) + 1; days != 7*MaxHeatmapWeeks {
		t.Fatalf("expected range clamped to %d weeks, got %d days", MaxHeatmapWeeks, days)
	}
}

func TestUpdateScheduleIsAllOrNothing(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Walk")

	if _, err := svc.UpdateSchedule(ctx, h.ID, model.Monthly{Interval: 0}, calendar.Date{}); !errors.Is(err, model.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	got, _ := svc.GetHabit(ctx, h.ID)
	if got.Rule.Frequency() != model.FrequencyDaily {
		t.Fatalf("rejected update must not persist: %s", got.Rule.Describe())
	}

	if _, err := svc.UpdateSchedule(ctx, h.ID, model.Monthly{Interval: 1, DayOfMonth: 31}, date(t, "2027-01-31")); err != nil {
		t.Fatalf("update schedule: %v", err)
	}
	got, _ = svc.GetHabit(ctx, h.ID)
	if got.Rule.Frequency() != model.FrequencyMonthly || !got.Rule.EndDate().Equal(date(t, "2027-01-31")) {
		t.Fatalf("schedule not persisted: %s", got.Rule.Describe())
	}
}

func TestArchiveAndDeleteHabit(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	keep := createDaily(t, svc, "Floss")
	archived := createDaily(t, svc, "Old habit")

	if _, err := svc.ArchiveHabit(ctx, archived.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	active, err := svc.ListHabits(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Fatalf("archived habit should be hidden: %d habits", len(active))
	}
	all, _ := svc.ListHabits(ctx, true)
	if len(all) != 2 {
		t.Fatalf("expected both habits with archived included, got %d", len(all))
	}

	if err := svc.DeleteHabit(ctx, keep.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetHabit(ctx, keep.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound after delete, got %v", err)
	}
	if err := svc.DeleteHabit(ctx, keep.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on second delete, got %v", err)
	}
}

func TestFindHabit(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Drink Water")
	createDaily(t, svc, "Sleep early")

	byTitle, err := svc.FindHabit(ctx, "drink water")
	if err != nil || byTitle.ID != h.ID {
		t.Fatalf("find by title: %v", err)
	}
	byPrefix, err := svc.FindHabit(ctx, h.ID[:8])
	if err != nil || byPrefix.ID != h.ID {
		t.Fatalf("find by prefix: %v", err)
	}
	if _, err := svc.FindHabit(ctx, "nothing like it"); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestSummaryAndHeatmap(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Journal")
	for _, raw := range []string{"2026-10-12", "2026-10-13", "2026-10-19"} {
		if _, _, err := svc.MarkCompleted(ctx, h.ID, date(t, raw)); err != nil {
			t.Fatalf("mark %s: %v", raw, err)
		}
	}

	sum, err := svc.Summary(ctx, h.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.CurrentStreak != 1 || sum.BestStreak != 2 || !sum.CompletedToday {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	cells, chains, err := svc.Heatmap(ctx, h.ID, 2)
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(cells) != 14 {
		t.Fatalf("two weeks should yield 14 cells, got %d", len(cells))
	}
	if cells[0].Date.String() != "2026-10-11" || cells[13].Date.String() != "2026-10-24" {
		t.Fatalf("unexpected range %s..%s", cells[0].Date, cells[13].Date)
	}
	if len(chains) != 2 || chains[0].Length != 2 {
		t.Fatalf("unexpected chains: %+v", chains)
	}
}

func TestConcurrentMutationsAreSerialised(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	h := createDaily(t, svc, "Pushups")

	today := date(t, "2026-10-19")
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(d calendar.Date) {
			defer wg.Done()
			if _, _, err := svc.MarkCompleted(ctx, h.ID, d); err != nil {
				errs <- err
			}
		}(today.AddDays(-i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent mark: %v", err)
	}

	got, err := svc.GetHabit(ctx, h.ID)
	if err != nil {
		t.Fatalf("get habit: %v", err)
	}
	if got.TotalCompletions != 20 || got.CurrentStreak != 20 {
		t.Fatalf("lost updates: total=%d streak=%d", got.TotalCompletions, got.CurrentStreak)
	}
}

type recordingScheduler struct {
	scheduled map[string]scheduler.ReminderEvent
	cancelled map[string]bool
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{
		scheduled: make(map[string]scheduler.ReminderEvent),
		cancelled: make(map[string]bool),
	}
}

func (r *recordingScheduler) Schedule(ev scheduler.ReminderEvent) error {
	r.scheduled[ev.HabitID] = ev
	return nil
}

func (r *recordingScheduler) Cancel(habitID string) bool {
	r.cancelled[habitID] = true
	delete(r.scheduled, habitID)
	return true
}

func TestPlanReminders(t *testing.T) {
	svc, repo := setupService(t, WithReminderDefaults(9, "Hard"))
	ctx := context.Background()
	plain := createDaily(t, svc, "Plain")
	early := createDaily(t, svc, "Early")
	muted := createDaily(t, svc, "Muted")
	archived := createDaily(t, svc, "Archived")

	if _, err := svc.SetReminder(ctx, early.ID, 7, 30, model.ReminderTypeNagging, true); err != nil {
		t.Fatalf("set reminder: %v", err)
	}
	if _, err := svc.SetReminder(ctx, muted.ID, 10, 0, model.ReminderTypeSoft, false); err != nil {
		t.Fatalf("set reminder: %v", err)
	}
	if _, err := svc.ArchiveHabit(ctx, archived.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	sched := newRecordingScheduler()
	n, err := svc.PlanReminders(ctx, sched)
	if err != nil {
		t.Fatalf("plan reminders: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 planned reminders, got %d", n)
	}

	ev := sched.scheduled[plain.ID]
	if !ev.TriggerAt.Equal(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)) || ev.Type != "Hard" {
		t.Fatalf("unexpected default reminder: %+v", ev)
	}
	ev = sched.scheduled[early.ID]
	if !ev.TriggerAt.Equal(time.Date(2026, 10, 20, 7, 30, 0, 0, time.UTC)) || ev.Type != "Nagging" {
		t.Fatalf("past reminder time should roll to the next occurrence: %+v", ev)
	}
	if ev.Occurrence.String() != "2026-10-20" {
		t.Fatalf("unexpected occurrence: %s", ev.Occurrence)
	}
	if !sched.cancelled[muted.ID] || !sched.cancelled[archived.ID] {
		t.Fatalf("disabled and archived habits should be cancelled: %v", sched.cancelled)
	}

	rows, err := repo.ListReminders(ctx, storage.ReminderListFilter{TaskID: early.Task.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("list reminders: %v (%d rows)", err, len(rows))
	}
	if !rows[0].TriggerAt.Equal(ev.TriggerAt) {
		t.Fatalf("stored trigger not refreshed: %s", rows[0].TriggerAt)
	}

	if err := svc.RecordReminderFired(ctx, ev, now); err != nil {
		t.Fatalf("record fired: %v", err)
	}
	fired, err := repo.GetReminder(ctx, rows[0].ID)
	if err != nil || fired.LastFired == nil || !fired.LastFired.Equal(now) {
		t.Fatalf("last fired not stored: %+v %v", fired, err)
	}
}

func TestSetReminderValidation(t *testing.T) {
	svc, _ := setupService(t)
	h := createDaily(t, svc, "Read")
	if _, err := svc.SetReminder(context.Background(), h.ID, 25, 0, model.ReminderTypeSoft, true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for hour, got %v", err)
	}
	if _, err := svc.SetReminder(context.Background(), h.ID, 8, 0, "Contextual", true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for type, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	c, err := svc.CreateCategory(ctx, "Health", "#00ff00")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := svc.CreateHabit(ctx, CreateHabitInput{Title: "Run", CategoryID: c.ID}); err != nil {
		t.Fatalf("create habit in category: %v", err)
	}
	list, err := svc.ListCategories(ctx)
	if err != nil || len(list) != 1 || list[0].Name != "Health" {
		t.Fatalf("unexpected categories: %+v %v", list, err)
	}
	if err := svc.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	habits, _ := svc.ListHabits(ctx, false)
	if len(habits) != 1 || habits[0].Task.CategoryID != "" {
		t.Fatalf("habit should survive with category cleared: %+v", habits)
	}
	if err := svc.DeleteCategory(ctx, c.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

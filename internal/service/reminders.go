package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/scheduler"
	"github.com/sandeepkv93/streakd/internal/storage"
)

// ReminderScheduler is the part of scheduler.Engine the service drives.
type ReminderScheduler interface {
	Schedule(ev scheduler.ReminderEvent) error
	Cancel(habitID string) bool
}

// SetReminder stores the time of day and type used to remind about a habit.
func (s *HabitService) SetReminder(ctx context.Context, habitID string, hour, minute int, typ model.ReminderType, enabled bool) (storage.Reminder, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return storage.Reminder{}, fmt.Errorf("%w: reminder time %02d:%02d", ErrInvalidInput, hour, minute)
	}
	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, _, err := s.load(ctx, habitID)
	if err != nil {
		return storage.Reminder{}, err
	}
	cal := s.tracker.Calendar()
	existing, found, err := s.storedReminder(ctx, h.Task.ID)
	if err != nil {
		return storage.Reminder{}, err
	}

	rem := model.Reminder{
		ID:          existing.ID,
		TaskID:      h.Task.ID,
		TriggerTime: atTimeOfDay(cal, cal.Today(), hour, minute),
		Type:        typ,
		LastFiredAt: existing.LastFired,
		Enabled:     enabled,
	}
	if !found {
		rem.ID = s.newID()
	}
	if err := rem.Validate(); err != nil {
		return storage.Reminder{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	row := storage.Reminder{
		ID:        rem.ID,
		TaskID:    rem.TaskID,
		TriggerAt: rem.TriggerTime.UTC(),
		Type:      string(rem.Type),
		LastFired: rem.LastFiredAt,
		Enabled:   rem.Enabled,
		CreatedAt: existing.CreatedAt,
	}
	if found {
		err = s.repo.UpdateReminder(ctx, row)
	} else {
		row.CreatedAt = cal.Now().UTC()
		err = s.repo.CreateReminder(ctx, row)
	}
	if err != nil {
		return storage.Reminder{}, fmt.Errorf("save reminder for %s: %w", habitID, err)
	}
	return row, nil
}

// PlanReminders queues the next reminder of every active habit. Archived
// habits, disabled reminders and finished rules have their pending reminder
// cancelled. It returns the number of habits scheduled.
func (s *HabitService) PlanReminders(ctx context.Context, sched ReminderScheduler) (int, error) {
	habits, err := s.ListHabits(ctx, true)
	if err != nil {
		return 0, err
	}
	planned := 0
	for _, h := range habits {
		ok, err := s.planReminder(ctx, sched, h)
		if err != nil {
			return planned, err
		}
		if ok {
			planned++
		}
	}
	s.logger.Debug("reminders planned", zap.Int("count", planned))
	return planned, nil
}

// PlanReminder refreshes one habit's pending reminder, typically after a
// completion changed its next due day.
func (s *HabitService) PlanReminder(ctx context.Context, sched ReminderScheduler, habitID string) (bool, error) {
	h, err := s.GetHabit(ctx, habitID)
	if err != nil {
		return false, err
	}
	return s.planReminder(ctx, sched, h)
}

func (s *HabitService) planReminder(ctx context.Context, sched ReminderScheduler, h *habit.Habit) (bool, error) {
	if h.Task.State == model.TaskStateArchived {
		sched.Cancel(h.ID)
		return false, nil
	}
	row, found, err := s.storedReminder(ctx, h.Task.ID)
	if err != nil {
		return false, err
	}
	if found && !row.Enabled {
		sched.Cancel(h.ID)
		return false, nil
	}

	ev, ok := s.nextReminder(h, row, found)
	if !ok {
		sched.Cancel(h.ID)
		return false, nil
	}
	if err := sched.Schedule(ev); err != nil {
		return false, fmt.Errorf("schedule reminder for %s: %w", h.ID, err)
	}
	if found && !row.TriggerAt.Equal(ev.TriggerAt.UTC()) {
		row.TriggerAt = ev.TriggerAt.UTC()
		if err := s.repo.UpdateReminder(ctx, row); err != nil {
			return false, fmt.Errorf("update reminder %s: %w", row.ID, err)
		}
	}
	return true, nil
}

// nextReminder fires at the reminder time of day on the next due day. When
// that moment has already passed today the following occurrence is used.
func (s *HabitService) nextReminder(h *habit.Habit, row storage.Reminder, found bool) (scheduler.ReminderEvent, bool) {
	cal := s.tracker.Calendar()
	now := cal.Now()
	hour, minute, typ := s.reminderHour, 0, s.reminderType
	id := h.ID
	if found {
		local := row.TriggerAt.In(cal.Location())
		hour, minute, typ = local.Hour(), local.Minute(), row.Type
		id = row.ID
	}

	due, ok := s.NextDue(h)
	if !ok {
		return scheduler.ReminderEvent{}, false
	}
	trigger := atTimeOfDay(cal, due, hour, minute)
	if !trigger.After(now) {
		due, ok = h.Rule.NextOccurrence(cal, due)
		if !ok {
			return scheduler.ReminderEvent{}, false
		}
		trigger = atTimeOfDay(cal, due, hour, minute)
	}
	return scheduler.ReminderEvent{
		ID:         id,
		HabitID:    h.ID,
		TaskID:     h.Task.ID,
		Title:      h.Task.Title,
		Type:       typ,
		Occurrence: due,
		TriggerAt:  trigger,
	}, true
}

// RecordReminderFired stamps the stored reminder of ev's task, if any.
func (s *HabitService) RecordReminderFired(ctx context.Context, ev scheduler.ReminderEvent, at time.Time) error {
	row, found, err := s.storedReminder(ctx, ev.TaskID)
	if err != nil || !found {
		return err
	}
	fired := at.UTC()
	row.LastFired = &fired
	if err := s.repo.UpdateReminder(ctx, row); err != nil {
		return fmt.Errorf("update reminder %s: %w", row.ID, err)
	}
	return nil
}

func (s *HabitService) storedReminder(ctx context.Context, taskID string) (storage.Reminder, bool, error) {
	rows, err := s.repo.ListReminders(ctx, storage.ReminderListFilter{TaskID: taskID, Limit: 1})
	if err != nil {
		return storage.Reminder{}, false, fmt.Errorf("list reminders: %w", err)
	}
	if len(rows) == 0 {
		return storage.Reminder{}, false, nil
	}
	return rows[0], true, nil
}

func atTimeOfDay(cal calendar.Calendar, d calendar.Date, hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, cal.Location())
}

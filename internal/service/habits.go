package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/storage"
)

type CreateHabitInput struct {
	Title       string
	Description string
	Priority    model.Priority
	CategoryID  string
	Metadata    string
	Schedule    model.Schedule
	// Anchor defaults to today.
	Anchor  calendar.Date
	EndDate calendar.Date
	Target  int
}

func (s *HabitService) CreateHabit(ctx context.Context, in CreateHabitInput) (*habit.Habit, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if in.Schedule == nil {
		in.Schedule = model.Daily{Interval: 1}
	}
	cal := s.tracker.Calendar()
	now := cal.Now()
	if in.Anchor.IsZero() {
		in.Anchor = cal.DateOf(now)
	}
	rule, err := model.NewRecurrenceRule(in.Schedule, in.Anchor, in.EndDate)
	if err != nil {
		return nil, err
	}
	task := model.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		State:       model.TaskStatePlanned,
		Priority:    in.Priority,
		CategoryID:  in.CategoryID,
		Metadata:    in.Metadata,
		CreatedAt:   now.UTC(),
	}
	h, err := s.tracker.New(s.newID(), task, rule, in.Target)
	if err != nil {
		return nil, err
	}

	base := storage.HabitRecord{
		Rule:  storage.RecurrenceRule{ID: s.newID(), TaskID: task.ID, CreatedAt: now.UTC()},
		Habit: storage.Habit{ID: h.ID, TaskID: task.ID, CreatedAt: now.UTC()},
	}
	base.Habit.RuleID = base.Rule.ID
	rec := recordFromHabit(h, base, now)
	if err := s.repo.InsertHabitRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	s.logger.Info("habit created",
		zap.String("habit_id", h.ID),
		zap.String("title", task.Title),
		zap.String("schedule", rule.Describe()),
	)
	return h, nil
}

func (s *HabitService) GetHabit(ctx context.Context, id string) (*habit.Habit, error) {
	h, _, err := s.load(ctx, id)
	return h, err
}

// ListHabits returns habits ordered by creation. Archived habits are left
// out unless includeArchived is set.
func (s *HabitService) ListHabits(ctx context.Context, includeArchived bool) ([]*habit.Habit, error) {
	rows, err := s.repo.ListHabits(ctx, storage.HabitListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	out := make([]*habit.Habit, 0, len(rows))
	for _, row := range rows {
		h, _, err := s.load(ctx, row.ID)
		if err != nil {
			if errors.Is(err, ErrHabitNotFound) {
				continue
			}
			return nil, err
		}
		if !includeArchived && h.Task.State == model.TaskStateArchived {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// FindHabit resolves a habit by id, id prefix or case-insensitive title.
func (s *HabitService) FindHabit(ctx context.Context, ref string) (*habit.Habit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: habit reference is required", ErrInvalidInput)
	}
	if h, err := s.GetHabit(ctx, ref); err == nil {
		return h, nil
	} else if !errors.Is(err, ErrHabitNotFound) {
		return nil, err
	}
	all, err := s.ListHabits(ctx, true)
	if err != nil {
		return nil, err
	}
	var match *habit.Habit
	for _, h := range all {
		if strings.EqualFold(h.Task.Title, ref) {
			return h, nil
		}
		if strings.HasPrefix(h.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q matches more than one habit", ErrInvalidInput, ref)
			}
			match = h
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrHabitNotFound, ref)
	}
	return match, nil
}

// DeleteHabit removes the owning task; the habit, rule and ledger cascade.
func (s *HabitService) DeleteHabit(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	row, err := s.repo.GetHabit(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		return err
	}
	if err := s.repo.DeleteTask(ctx, row.TaskID); err != nil {
		return fmt.Errorf("delete habit %s: %w", id, err)
	}
	s.logger.Info("habit deleted", zap.String("habit_id", id))
	return nil
}

// ArchiveHabit hides a habit from lists and reminders; its ledger is kept.
func (s *HabitService) ArchiveHabit(ctx context.Context, id string) (*habit.Habit, error) {
	h, _, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		if h.Task.State == model.TaskStateArchived {
			return false, nil
		}
		h.Task.CompletedAt = nil
		h.Task.State = model.TaskStateArchived
		return true, nil
	})
	return h, err
}

func (s *HabitService) MarkCompleted(ctx context.Context, id string, d calendar.Date) (*habit.Habit, bool, error) {
	if err := s.checkNotFuture(d); err != nil {
		return nil, false, err
	}
	h, changed, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		return s.tracker.MarkCompleted(h, s.instant(d)), nil
	})
	if err == nil && changed {
		s.logger.Info("habit completed",
			zap.String("habit_id", id),
			zap.String("date", d.String()),
			zap.Int("streak", h.CurrentStreak),
		)
	}
	return h, changed, err
}

func (s *HabitService) MarkIncomplete(ctx context.Context, id string, d calendar.Date) (*habit.Habit, bool, error) {
	if d.IsZero() {
		return nil, false, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	h, changed, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		return s.tracker.MarkIncomplete(h, s.instant(d)), nil
	})
	if err == nil && changed {
		s.logger.Info("habit completion removed",
			zap.String("habit_id", id),
			zap.String("date", d.String()),
			zap.Int("streak", h.CurrentStreak),
		)
	}
	return h, changed, err
}

// UseProtectionDay protects d. ErrQuotaExhausted means nothing changed.
func (s *HabitService) UseProtectionDay(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error) {
	if err := s.checkNotFuture(d); err != nil {
		return nil, err
	}
	h, _, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		if h.IsProtected(d) {
			return false, nil
		}
		if !s.tracker.UseProtectionDay(h, s.instant(d)) {
			return false, ErrQuotaExhausted
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			s.logger.Warn("protection quota exhausted", zap.String("habit_id", id), zap.String("date", d.String()))
		}
		return nil, err
	}
	s.logger.Info("protection day used",
		zap.String("habit_id", id),
		zap.String("date", d.String()),
		zap.Int("streak", h.CurrentStreak),
	)
	return h, nil
}

func (s *HabitService) AddException(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	h, _, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		if h.Rule.HasException(d) {
			return false, nil
		}
		h.Rule.AddException(d)
		return true, nil
	})
	return h, err
}

func (s *HabitService) RemoveException(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	h, _, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		if !h.Rule.HasException(d) {
			return false, nil
		}
		h.Rule.RemoveException(d)
		return true, nil
	})
	return h, err
}

// UpdateSchedule replaces the rule's schedule and end date. A rejected
// schedule leaves the habit unchanged.
func (s *HabitService) UpdateSchedule(ctx context.Context, id string, schedule model.Schedule, end calendar.Date) (*habit.Habit, error) {
	h, _, err := s.mutate(ctx, id, func(h *habit.Habit) (bool, error) {
		next := h.Rule.Clone()
		if err := next.SetSchedule(schedule); err != nil {
			return false, err
		}
		if err := next.SetEndDate(end); err != nil {
			return false, err
		}
		h.Rule = next
		return true, nil
	})
	return h, err
}

// NextDue is the next day the habit should be done: today when today is a
// pending occurrence, otherwise the following occurrence.
func (s *HabitService) NextDue(h *habit.Habit) (calendar.Date, bool) {
	cal := s.tracker.Calendar()
	today := cal.Today()
	if !h.IsCompleted(today) && h.Rule.IsValidOccurrence(cal, today) {
		return today, true
	}
	return h.Rule.NextOccurrence(cal, today)
}

// Upper bounds for caller-sized listings.
const (
	MaxOccurrenceCount = 366
	MaxHeatmapWeeks    = 260
)

// NextOccurrence lists up to count upcoming due days, starting with NextDue.
func (s *HabitService) NextOccurrence(ctx context.Context, id string, count int) ([]calendar.Date, error) {
	if count > MaxOccurrenceCount {
		return nil, fmt.Errorf("%w: count %d exceeds %d", ErrInvalidInput, count, MaxOccurrenceCount)
	}
	h, err := s.GetHabit(ctx, id)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}
	first, ok := s.NextDue(h)
	if !ok {
		return []calendar.Date{}, nil
	}
	out := append([]calendar.Date{first}, h.Rule.Preview(s.tracker.Calendar(), first, count-1)...)
	return out, nil
}

func (s *HabitService) Summary(ctx context.Context, id string) (habit.Summary, error) {
	h, err := s.GetHabit(ctx, id)
	if err != nil {
		return habit.Summary{}, err
	}
	return s.tracker.Summarize(h), nil
}

func (s *HabitService) Summaries(ctx context.Context) ([]habit.Summary, error) {
	all, err := s.ListHabits(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]habit.Summary, 0, len(all))
	for _, h := range all {
		out = append(out, s.tracker.Summarize(h))
	}
	return out, nil
}

// Heatmap covers the given number of weeks ending with the current week.
func (s *HabitService) Heatmap(ctx context.Context, id string, weeks int) ([]habit.Cell, []habit.Run, error) {
	if weeks > MaxHeatmapWeeks {
		return nil, nil, fmt.Errorf("%w: weeks %d exceeds %d", ErrInvalidInput, weeks, MaxHeatmapWeeks)
	}
	h, err := s.GetHabit(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	from, to := s.HeatmapRange(weeks)
	return habit.Heatmap(h, from, to), habit.Chains(h, from, to), nil
}

// HeatmapRange spans whole weeks so the grid has no ragged first column.
func (s *HabitService) HeatmapRange(weeks int) (calendar.Date, calendar.Date) {
	weeks = max(1, min(weeks, MaxHeatmapWeeks))
	cal := s.tracker.Calendar()
	to := cal.EndOfWeek(cal.Today())
	from := cal.AddWeeks(cal.StartOfWeek(to), -(weeks - 1))
	return from, to
}

func (s *HabitService) instant(d calendar.Date) time.Time {
	cal := s.tracker.Calendar()
	if d.Equal(cal.Today()) {
		return cal.Now()
	}
	return cal.Time(d).Add(12 * time.Hour)
}

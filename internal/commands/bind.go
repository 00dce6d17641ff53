package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/service"
)

// Backend is the slice of service.HabitService the command handlers use.
type Backend interface {
	Calendar() calendar.Calendar
	FindHabit(ctx context.Context, ref string) (*habit.Habit, error)
	CreateHabit(ctx context.Context, in service.CreateHabitInput) (*habit.Habit, error)
	MarkCompleted(ctx context.Context, id string, d calendar.Date) (*habit.Habit, bool, error)
	MarkIncomplete(ctx context.Context, id string, d calendar.Date) (*habit.Habit, bool, error)
	UseProtectionDay(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error)
	AddException(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error)
	RemoveException(ctx context.Context, id string, d calendar.Date) (*habit.Habit, error)
}

var _ Backend = (*service.HabitService)(nil)

// Bind wires every handler except Show to b. selectedID stands in for the
// "selected" target; callers without a selection pass "".
func Bind(ctx context.Context, b Backend, selectedID string) Handlers {
	resolve := func(args MarkArgs) (*habit.Habit, calendar.Date, error) {
		ref := args.Target
		if ref == TargetSelected {
			if selectedID == "" {
				return nil, calendar.Date{}, invalid("no habit selected")
			}
			ref = selectedID
		}
		d, err := ResolveDate(b.Calendar(), args.When)
		if err != nil {
			return nil, calendar.Date{}, err
		}
		h, err := b.FindHabit(ctx, ref)
		if err != nil {
			return nil, calendar.Date{}, fromService(err)
		}
		return h, d, nil
	}

	return Handlers{
		Add: func(a AddArgs) (Result, error) {
			h, err := b.CreateHabit(ctx, service.CreateHabitInput{Title: a.Title, Schedule: a.Schedule, Target: a.Target})
			if err != nil {
				return Result{}, fromService(err)
			}
			return Result{Message: fmt.Sprintf("added %q, %s", h.Task.Title, h.Rule.Describe()), HabitID: h.ID}, nil
		},
		Done: func(a MarkArgs) (Result, error) {
			h, d, err := resolve(a)
			if err != nil {
				return Result{}, err
			}
			updated, changed, err := b.MarkCompleted(ctx, h.ID, d)
			if err != nil {
				return Result{}, fromService(err)
			}
			if !changed {
				return Result{Message: fmt.Sprintf("%s already done on %s", h.Task.Title, d), HabitID: h.ID}, nil
			}
			return Result{Message: fmt.Sprintf("%s done on %s, streak %d", h.Task.Title, d, updated.CurrentStreak), HabitID: h.ID}, nil
		},
		Undo: func(a MarkArgs) (Result, error) {
			h, d, err := resolve(a)
			if err != nil {
				return Result{}, err
			}
			updated, changed, err := b.MarkIncomplete(ctx, h.ID, d)
			if err != nil {
				return Result{}, fromService(err)
			}
			if !changed {
				return Result{Message: fmt.Sprintf("%s was not done on %s", h.Task.Title, d), HabitID: h.ID}, nil
			}
			return Result{Message: fmt.Sprintf("%s undone on %s, streak %d", h.Task.Title, d, updated.CurrentStreak), HabitID: h.ID}, nil
		},
		Protect: func(a MarkArgs) (Result, error) {
			if a.When == "" {
				a.When = "yesterday"
			}
			h, d, err := resolve(a)
			if err != nil {
				return Result{}, err
			}
			updated, err := b.UseProtectionDay(ctx, h.ID, d)
			if err != nil {
				return Result{}, fromService(err)
			}
			return Result{Message: fmt.Sprintf("%s protected on %s, streak %d", h.Task.Title, d, updated.CurrentStreak), HabitID: h.ID}, nil
		},
		Skip: func(a MarkArgs) (Result, error) {
			h, d, err := resolve(a)
			if err != nil {
				return Result{}, err
			}
			if _, err := b.AddException(ctx, h.ID, d); err != nil {
				return Result{}, fromService(err)
			}
			return Result{Message: fmt.Sprintf("%s skipped on %s", h.Task.Title, d), HabitID: h.ID}, nil
		},
		Unskip: func(a MarkArgs) (Result, error) {
			h, d, err := resolve(a)
			if err != nil {
				return Result{}, err
			}
			if _, err := b.RemoveException(ctx, h.ID, d); err != nil {
				return Result{}, fromService(err)
			}
			return Result{Message: fmt.Sprintf("%s no longer skipped on %s", h.Task.Title, d), HabitID: h.ID}, nil
		},
	}
}

// fromService maps caller mistakes onto invalid_argument and passes other
// failures through.
func fromService(err error) error {
	switch {
	case errors.Is(err, service.ErrHabitNotFound),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrFutureDate),
		errors.Is(err, service.ErrQuotaExhausted),
		errors.Is(err, model.ErrInvalidRule):
		return &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	default:
		return err
	}
}

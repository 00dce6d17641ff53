package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	CreateReminder(ctx context.Context, in Reminder) error
	GetReminder(ctx context.Context, id string) (Reminder, error)
	UpdateReminder(ctx context.Context, in Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error)

	CreateCategory(ctx context.Context, in Category) error
	GetCategory(ctx context.Context, id string) (Category, error)
	UpdateCategory(ctx context.Context, in Category) error
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context, filter CategoryListFilter) ([]Category, error)

	CreateRecurrence(ctx context.Context, in RecurrenceRule) error
	GetRecurrence(ctx context.Context, id string) (RecurrenceRule, error)
	UpdateRecurrence(ctx context.Context, in RecurrenceRule) error
	DeleteRecurrence(ctx context.Context, id string) error
	ListRecurrenceExceptions(ctx context.Context, ruleID string) ([]string, error)

	GetHabit(ctx context.Context, id string) (Habit, error)
	ListHabits(ctx context.Context, filter HabitListFilter) ([]Habit, error)
	InsertHabitRecord(ctx context.Context, rec HabitRecord) error
	LoadHabitRecord(ctx context.Context, habitID string) (HabitRecord, error)
	SaveHabitRecord(ctx context.Context, rec HabitRecord) error
}

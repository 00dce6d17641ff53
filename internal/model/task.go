package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidState    = errors.New("model: invalid task state")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type TaskState string

const (
	TaskStatePlanned  TaskState = "Planned"
	TaskStateDone     TaskState = "Done"
	TaskStateArchived TaskState = "Archived"
)

func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePlanned, TaskStateDone, TaskStateArchived:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Task is the schedulable unit a habit owns. Metadata is an opaque blob
// carried for the UI; nothing in the engine reads it.
type Task struct {
	ID          string
	Title       string
	Description string
	State       TaskState
	Priority    Priority
	CategoryID  string
	Metadata    string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (t Task) IsCompleted() bool {
	return t.State == TaskStateDone
}

// Complete marks the task done at the given instant.
func (t *Task) Complete(at time.Time) {
	done := at
	t.State = TaskStateDone
	t.CompletedAt = &done
}

// Reopen returns a done task to Planned. Archived tasks stay archived.
func (t *Task) Reopen() {
	if t.State == TaskStateDone {
		t.State = TaskStatePlanned
	}
	t.CompletedAt = nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.State.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, t.State)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.State == TaskStateDone && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task state is Done")
	}
	if t.State != TaskStateDone && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task state is not Done")
	}
	return nil
}

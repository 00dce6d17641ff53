package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskValidateSuccess(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		Title:     "Read 20 pages",
		State:     TaskStatePlanned,
		Priority:  PriorityHigh,
		Metadata:  `{"color":"#7aa2f7"}`,
		CreatedAt: now,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateDoneRequiresCompletedAt(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		Title:     "Done task",
		State:     TaskStateDone,
		Priority:  PriorityMedium,
		CreatedAt: now,
	}
	err := task.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "model: completed_at is required when task state is Done" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskValidateInvalidEnums(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		Title:     "Bad state",
		State:     TaskState("Invalid"),
		Priority:  PriorityLow,
		CreatedAt: now,
	}
	err := task.Validate()
	if err == nil || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got: %v", err)
	}

	task.State = TaskStatePlanned
	task.Priority = Priority("Bad")
	err = task.Validate()
	if err == nil || !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got: %v", err)
	}
}

func TestTaskCompleteAndReopen(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "task-1", Title: "Stretch", State: TaskStatePlanned, Priority: PriorityLow, CreatedAt: now}

	task.Complete(now.Add(time.Hour))
	if !task.IsCompleted() || task.CompletedAt == nil || !task.CompletedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected completed task: %+v", task)
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("completed task should validate: %v", err)
	}

	task.Reopen()
	if task.IsCompleted() || task.CompletedAt != nil || task.State != TaskStatePlanned {
		t.Fatalf("unexpected reopened task: %+v", task)
	}

	task.State = TaskStateArchived
	task.Reopen()
	if task.State != TaskStateArchived {
		t.Fatalf("archived task should stay archived, got %s", task.State)
	}
}

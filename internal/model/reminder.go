package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReminderType = errors.New("model: invalid reminder type")

type ReminderType string

const (
	ReminderTypeHard ReminderType = "Hard"
	ReminderTypeSoft ReminderType = "Soft"
	// Nagging reminders refire every nag interval until acknowledged or the
	// occurrence is completed.
	ReminderTypeNagging ReminderType = "Nagging"
)

func (r ReminderType) IsValid() bool {
	switch r {
	case ReminderTypeHard, ReminderTypeSoft, ReminderTypeNagging:
		return true
	default:
		return false
	}
}

// Reminder is a notification planned for a task occurrence. TriggerTime is
// derived from the recurrence rule's next occurrence plus the configured
// reminder hour.
type Reminder struct {
	ID          string
	TaskID      string
	TriggerTime time.Time
	Type        ReminderType
	LastFiredAt *time.Time
	Enabled     bool
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.TaskID) == "" {
		return errors.New("model: reminder task_id is required")
	}
	if r.TriggerTime.IsZero() {
		return errors.New("model: reminder trigger_time is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderType, r.Type)
	}
	return nil
}

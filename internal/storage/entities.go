package storage

import "time"

// Calendar days are stored as YYYY-MM-DD strings; instants as RFC3339 UTC.

type Task struct {
	ID          string
	Title       string
	Description string
	State       string
	Priority    string
	CategoryID  string
	Metadata    string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type Reminder struct {
	ID        string
	TaskID    string
	TriggerAt time.Time
	Type      string
	LastFired *time.Time
	Enabled   bool
	CreatedAt time.Time
}

type Category struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// RecurrenceRule flattens the schedule variants. Weekdays holds 1..7
// (Sunday first) comma separated; CustomDates holds days comma separated.
type RecurrenceRule struct {
	ID            string
	TaskID        string
	Frequency     string
	IntervalValue int
	Weekdays      string
	DayOfMonth    int
	AnchorDate    string
	EndDate       string
	CustomDates   string
	CreatedAt     time.Time
}

// Habit holds the streak caches; they are recomputed on load.
type Habit struct {
	ID                 string
	TaskID             string
	RuleID             string
	CurrentStreak      int
	BestStreak         int
	TotalCompletions   int
	ProtectionDaysUsed int
	LastProtectionDate string
	TargetPerPeriod    int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HabitRecord is everything persisted for one habit, written and read as a
// unit.
type HabitRecord struct {
	Habit       Habit
	Task        Task
	Rule        RecurrenceRule
	Exceptions  []string
	Completions []string
	Protections []string
}

type TaskListFilter struct {
	State  string
	Limit  int
	Offset int
}

type ReminderListFilter struct {
	TaskID  string
	Enabled *bool
	Limit   int
	Offset  int
}

type CategoryListFilter struct {
	Limit  int
	Offset int
}

type HabitListFilter struct {
	TaskState string
	Limit     int
	Offset    int
}

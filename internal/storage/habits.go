package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const habitColumns = `h.id, h.task_id, h.rule_id, h.current_streak, h.best_streak, h.total_completions,
	h.protection_days_used, h.last_protection_date, h.target_per_period, h.created_at, h.updated_at`

func (r *SQLiteRepository) GetHabit(ctx context.Context, id string) (Habit, error) {
	return getHabit(ctx, r.db, id)
}

func getHabit(ctx context.Context, q dbtx, id string) (Habit, error) {
	row := q.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits h WHERE h.id = ?`, id)
	item, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Habit{}, ErrNotFound
		}
		return Habit{}, err
	}
	return item, nil
}

// ListHabits orders habits by their task's creation time, oldest first.
func (r *SQLiteRepository) ListHabits(ctx context.Context, filter HabitListFilter) ([]Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits h JOIN tasks t ON t.id = h.task_id`
	args := make([]any, 0, 3)
	if filter.TaskState != "" {
		query += ` WHERE t.state = ?`
		args = append(args, filter.TaskState)
	}
	query += ` ORDER BY t.created_at ASC, h.id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Habit, 0)
	for rows.Next() {
		item, scanErr := scanHabit(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// InsertHabitRecord creates the task, rule, habit and ledger rows in one
// transaction.
func (r *SQLiteRepository) InsertHabitRecord(ctx context.Context, rec HabitRecord) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := createTask(ctx, tx, rec.Task); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if err := createRecurrence(ctx, tx, rec.Rule); err != nil {
			return fmt.Errorf("insert recurrence: %w", err)
		}
		h := rec.Habit
		_, err := tx.ExecContext(ctx, `
			INSERT INTO habits (id, task_id, rule_id, current_streak, best_streak, total_completions,
				protection_days_used, last_protection_date, target_per_period, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.TaskID, h.RuleID, h.CurrentStreak, h.BestStreak, h.TotalCompletions,
			h.ProtectionDaysUsed, nullString(h.LastProtectionDate), h.TargetPerPeriod,
			mustTime(h.CreatedAt), mustTime(h.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert habit: %w", err)
		}
		return replaceDays(ctx, tx, rec)
	})
}

func (r *SQLiteRepository) LoadHabitRecord(ctx context.Context, habitID string) (HabitRecord, error) {
	var rec HabitRecord
	var err error
	if rec.Habit, err = getHabit(ctx, r.db, habitID); err != nil {
		return HabitRecord{}, err
	}
	if rec.Task, err = getTask(ctx, r.db, rec.Habit.TaskID); err != nil {
		return HabitRecord{}, fmt.Errorf("load task %s: %w", rec.Habit.TaskID, err)
	}
	if rec.Rule, err = getRecurrence(ctx, r.db, rec.Habit.RuleID); err != nil {
		return HabitRecord{}, fmt.Errorf("load recurrence %s: %w", rec.Habit.RuleID, err)
	}
	if rec.Exceptions, err = r.ListRecurrenceExceptions(ctx, rec.Rule.ID); err != nil {
		return HabitRecord{}, err
	}
	if rec.Completions, err = listDays(ctx, r.db, `SELECT day FROM habit_completions WHERE habit_id = ? ORDER BY day ASC`, habitID); err != nil {
		return HabitRecord{}, err
	}
	if rec.Protections, err = listDays(ctx, r.db, `SELECT day FROM habit_protections WHERE habit_id = ? ORDER BY day ASC`, habitID); err != nil {
		return HabitRecord{}, err
	}
	return rec, nil
}

// SaveHabitRecord rewrites the mutable parts of a habit in one transaction:
// task state, rule, streak caches and the day sets.
func (r *SQLiteRepository) SaveHabitRecord(ctx context.Context, rec HabitRecord) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateTask(ctx, tx, rec.Task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := updateRecurrence(ctx, tx, rec.Rule); err != nil {
			return fmt.Errorf("update recurrence: %w", err)
		}
		h := rec.Habit
		res, err := tx.ExecContext(ctx, `
			UPDATE habits
			SET current_streak = ?, best_streak = ?, total_completions = ?, protection_days_used = ?,
				last_protection_date = ?, target_per_period = ?, updated_at = ?
			WHERE id = ?`,
			h.CurrentStreak, h.BestStreak, h.TotalCompletions, h.ProtectionDaysUsed,
			nullString(h.LastProtectionDate), h.TargetPerPeriod, mustTime(h.UpdatedAt), h.ID,
		)
		if err != nil {
			return fmt.Errorf("update habit: %w", err)
		}
		if err := checkRowsAffected(res); err != nil {
			return err
		}
		return replaceDays(ctx, tx, rec)
	})
}

func replaceDays(ctx context.Context, tx *sql.Tx, rec HabitRecord) error {
	sets := []struct {
		table string
		owner string
		id    string
		days  []string
	}{
		{"recurrence_exceptions", "rule_id", rec.Rule.ID, rec.Exceptions},
		{"habit_completions", "habit_id", rec.Habit.ID, rec.Completions},
		{"habit_protections", "habit_id", rec.Habit.ID, rec.Protections},
	}
	for _, set := range sets {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+set.table+` WHERE `+set.owner+` = ?`, set.id); err != nil {
			return fmt.Errorf("clear %s: %w", set.table, err)
		}
		for _, day := range set.days {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO `+set.table+` (`+set.owner+`, day) VALUES (?, ?)`, set.id, day); err != nil {
				return fmt.Errorf("insert %s %s: %w", set.table, day, err)
			}
		}
	}
	return nil
}

func listDays(ctx context.Context, q dbtx, query, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

func scanHabit(s scanner) (Habit, error) {
	var out Habit
	var lastProtection sql.NullString
	var created, updated string
	if err := s.Scan(&out.ID, &out.TaskID, &out.RuleID, &out.CurrentStreak, &out.BestStreak, &out.TotalCompletions,
		&out.ProtectionDaysUsed, &lastProtection, &out.TargetPerPeriod, &created, &updated); err != nil {
		return Habit{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Habit{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Habit{}, err
	}
	out.LastProtectionDate = lastProtection.String
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

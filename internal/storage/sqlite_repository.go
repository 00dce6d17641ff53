package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	// foreign_keys is a per-connection pragma.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const taskColumns = `id, title, description, state, priority, category_id, metadata, created_at, completed_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	return createTask(ctx, r.db, in)
}

func createTask(ctx context.Context, q dbtx, in Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Title, in.Description, in.State, in.Priority, nullString(in.CategoryID), in.Metadata,
		mustTime(in.CreatedAt), nullTime(in.CompletedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	return getTask(ctx, r.db, id)
}

func getTask(ctx context.Context, q dbtx, id string) (Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	return updateTask(ctx, r.db, in)
}

func updateTask(ctx context.Context, q dbtx, in Task) error {
	res, err := q.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, state = ?, priority = ?, category_id = ?, metadata = ?, completed_at = ?
		WHERE id = ?`,
		in.Title, in.Description, in.State, in.Priority, nullString(in.CategoryID), in.Metadata,
		nullTime(in.CompletedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, 3)
	if filter.State != "" {
		query += ` WHERE state = ?`
		args = append(args, filter.State)
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (id, task_id, trigger_time, type, last_fired_at, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.TaskID, mustTime(in.TriggerAt), in.Type, nullTime(in.LastFired), boolInt(in.Enabled), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, trigger_time, type, last_fired_at, enabled, created_at
		FROM reminders WHERE id = ?`, id)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, in Reminder) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET task_id = ?, trigger_time = ?, type = ?, last_fired_at = ?, enabled = ?
		WHERE id = ?`,
		in.TaskID, mustTime(in.TriggerAt), in.Type, nullTime(in.LastFired), boolInt(in.Enabled), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error) {
	query := `SELECT id, task_id, trigger_time, type, last_fired_at, enabled, created_at FROM reminders`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Enabled != nil {
		clauses = append(clauses, "enabled = ?")
		args = append(args, boolInt(*filter.Enabled))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY trigger_time ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, in Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, created_at)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.Name, in.Color, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM categories WHERE id = ?`, id)
	item, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, in Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = ?, color = ? WHERE id = ?`, in.Name, in.Color, in.ID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, filter CategoryListFilter) ([]Category, error) {
	args := make([]any, 0, 2)
	query := `SELECT id, name, color, created_at FROM categories ORDER BY name ASC` + applyPagination(&args, filter.Limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		item, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const recurrenceColumns = `id, task_id, frequency, interval_value, weekdays, day_of_month, anchor_date, end_date, custom_dates, created_at`

func (r *SQLiteRepository) CreateRecurrence(ctx context.Context, in RecurrenceRule) error {
	return createRecurrence(ctx, r.db, in)
}

func createRecurrence(ctx context.Context, q dbtx, in RecurrenceRule) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO recurrence_rules (`+recurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.TaskID, in.Frequency, in.IntervalValue, in.Weekdays, in.DayOfMonth,
		in.AnchorDate, nullString(in.EndDate), in.CustomDates, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetRecurrence(ctx context.Context, id string) (RecurrenceRule, error) {
	return getRecurrence(ctx, r.db, id)
}

func getRecurrence(ctx context.Context, q dbtx, id string) (RecurrenceRule, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recurrenceColumns+` FROM recurrence_rules WHERE id = ?`, id)
	item, err := scanRecurrence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RecurrenceRule{}, ErrNotFound
		}
		return RecurrenceRule{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateRecurrence(ctx context.Context, in RecurrenceRule) error {
	return updateRecurrence(ctx, r.db, in)
}

func updateRecurrence(ctx context.Context, q dbtx, in RecurrenceRule) error {
	res, err := q.ExecContext(ctx, `
		UPDATE recurrence_rules
		SET frequency = ?, interval_value = ?, weekdays = ?, day_of_month = ?, anchor_date = ?, end_date = ?, custom_dates = ?
		WHERE id = ?`,
		in.Frequency, in.IntervalValue, in.Weekdays, in.DayOfMonth, in.AnchorDate, nullString(in.EndDate), in.CustomDates, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteRecurrence(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListRecurrenceExceptions(ctx context.Context, ruleID string) ([]string, error) {
	return listDays(ctx, r.db, `SELECT day FROM recurrence_exceptions WHERE rule_id = ? ORDER BY day ASC`, ruleID)
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var category sql.NullString
	var created string
	var completed sql.NullString
	if err := s.Scan(&out.ID, &out.Title, &out.Description, &out.State, &out.Priority, &category, &out.Metadata, &created, &completed); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return Task{}, err
	}
	out.CategoryID = category.String
	out.CreatedAt = createdAt
	out.CompletedAt = completedAt
	return out, nil
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var trigger string
	var fired sql.NullString
	var enabled int
	var created string
	if err := s.Scan(&out.ID, &out.TaskID, &trigger, &out.Type, &fired, &enabled, &created); err != nil {
		return Reminder{}, err
	}
	triggerAt, err := parseRequiredTime(trigger)
	if err != nil {
		return Reminder{}, err
	}
	lastFired, err := parseNullableTime(fired)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.TriggerAt = triggerAt
	out.LastFired = lastFired
	out.Enabled = enabled == 1
	out.CreatedAt = createdAt
	return out, nil
}

func scanCategory(s scanner) (Category, error) {
	var out Category
	var created string
	if err := s.Scan(&out.ID, &out.Name, &out.Color, &created); err != nil {
		return Category{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Category{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanRecurrence(s scanner) (RecurrenceRule, error) {
	var out RecurrenceRule
	var end sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.TaskID, &out.Frequency, &out.IntervalValue, &out.Weekdays, &out.DayOfMonth,
		&out.AnchorDate, &end, &out.CustomDates, &created); err != nil {
		return RecurrenceRule{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return RecurrenceRule{}, err
	}
	out.EndDate = end.String
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

const taskSelectColumns = `id, type_id, owner_user_id, next_assignee_user_id, status,
       requirement, custom_fields, created_at, updated_at`

// scanTaskRow scans a task row into a Task struct.
func scanTaskRow(row rowScanner) (workflow.Task, error) {
	var t workflow.Task
	var createdAt string
	var updatedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.TypeID, &t.OwnerUserID, &t.NextAssigneeUserID, &t.Status,
		&t.RequirementSnapshot, &t.CustomFields, &createdAt, &updatedAt,
	)
	if err != nil {
		return t, err
	}

	t.CreatedAt = parseTime(createdAt)
	if updatedAt.Valid && updatedAt.String != "" {
		u := parseTime(updatedAt.String)
		t.UpdatedAt = &u
	}
	return t, nil
}

func getTask(ctx context.Context, q queryer, id int64) (*workflow.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskSelectColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &t, nil
}

// InsertTask stores a new task and sets its ID.
func (s *SQLiteStore) InsertTask(ctx context.Context, t *workflow.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			type_id, owner_user_id, next_assignee_user_id, status,
			requirement, custom_fields, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.TypeID, t.OwnerUserID, t.NextAssigneeUserID, t.Status,
		t.RequirementSnapshot, t.CustomFields, formatTime(t.CreatedAt), nullTimeString(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task id: %w", err)
	}
	t.ID = id
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*workflow.Task, error) {
	return getTask(ctx, s.db, id)
}

// ListTasks returns tasks newest first. A non-nil ownerUserID restricts the
// result to that owner's tasks.
func (s *SQLiteStore) ListTasks(ctx context.Context, ownerUserID *int64) ([]workflow.Task, error) {
	query := `SELECT ` + taskSelectColumns + ` FROM tasks`
	var args []any
	if ownerUserID != nil {
		query += ` WHERE owner_user_id = ?`
		args = append(args, *ownerUserID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []workflow.Task{}
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task. Requirement history goes with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountTasks returns the number of stored tasks.
func (s *SQLiteStore) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// taskTx implements workflow.TaskTx on an open transaction.
type taskTx struct {
	q queryer
}

func (tx *taskTx) GetTask(ctx context.Context, id int64) (*workflow.Task, error) {
	return getTask(ctx, tx.q, id)
}

func (tx *taskTx) UpdateTaskStatus(ctx context.Context, id int64, status int, snapshot *string, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	if snapshot != nil {
		res, err = tx.q.ExecContext(ctx,
			`UPDATE tasks SET status = ?, requirement = ?, updated_at = ? WHERE id = ?`,
			status, *snapshot, formatTime(at), id)
	} else {
		res, err = tx.q.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(at), id)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task status rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", id, workflow.ErrNotFound)
	}
	return nil
}

func (tx *taskTx) UpsertRequirement(ctx context.Context, taskID int64, statusID int, value string, at time.Time) error {
	return upsertRequirement(ctx, tx.q, taskID, statusID, value, at)
}

func (tx *taskTx) GetRequirement(ctx context.Context, taskID int64, statusID int) (string, bool, error) {
	return getRequirement(ctx, tx.q, taskID, statusID)
}

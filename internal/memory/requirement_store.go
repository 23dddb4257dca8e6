package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// upsertRequirement overwrites the value for (task, status) or inserts it.
func upsertRequirement(ctx context.Context, q queryer, taskID int64, statusID int, value string, at time.Time) error {
	ts := formatTime(at)
	_, err := q.ExecContext(ctx, `
		INSERT INTO task_status_requirements (task_id, status_id, requirement_value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id, status_id) DO UPDATE SET
			requirement_value = excluded.requirement_value,
			updated_at = excluded.updated_at
	`, taskID, statusID, value, ts, ts)
	if err != nil {
		return fmt.Errorf("upsert requirement (task %d, status %d): %w", taskID, statusID, err)
	}
	return nil
}

func getRequirement(ctx context.Context, q queryer, taskID int64, statusID int) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx,
		`SELECT requirement_value FROM task_status_requirements WHERE task_id = ? AND status_id = ?`,
		taskID, statusID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query requirement: %w", err)
	}
	return value, true, nil
}

// UpsertRequirement records the evidence submitted when a task left statusID.
func (s *SQLiteStore) UpsertRequirement(ctx context.Context, taskID int64, statusID int, value string, at time.Time) error {
	return upsertRequirement(ctx, s.db, taskID, statusID, value, at)
}

// GetRequirement returns the stored value for (task, status) and whether one exists.
func (s *SQLiteStore) GetRequirement(ctx context.Context, taskID int64, statusID int) (string, bool, error) {
	return getRequirement(ctx, s.db, taskID, statusID)
}

// ListRequirements returns a task's requirement history ordered by status.
func (s *SQLiteStore) ListRequirements(ctx context.Context, taskID int64) ([]workflow.RequirementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, status_id, requirement_value, created_at, updated_at
		FROM task_status_requirements
		WHERE task_id = ?
		ORDER BY status_id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []workflow.RequirementRecord{}
	for rows.Next() {
		var r workflow.RequirementRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&r.TaskID, &r.StatusID, &r.Value, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		records = append(records, r)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return records, nil
}

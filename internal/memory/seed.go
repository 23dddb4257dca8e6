package memory

import (
	"context"
	"fmt"
	"time"
)

const (
	sampleQuotes = "Quote A: $500 for premium package, Quote B: $450 for standard package"
	sampleSpec   = "Complete user management system with role-based access control"
	sampleBranch = "feature/user-management-v2"
)

var sampleUsers = []string{
	"John Doe",
	"Jane Smith",
	"Bob Johnson",
	"Alice Brown",
	"Charlie Wilson",
	"Diana Miller",
	"Edward Davis",
	"Fiona Garcia",
}

type sampleTask struct {
	typeID      int
	owner       int64
	assignee    int64
	status      int
	requirement string
	createdAgo  int // days
	updatedAgo  int // days, 0 = never updated
	history     []string
}

// History entries are indexed by the status they were submitted to leave.
var sampleTasks = []sampleTask{
	{typeID: 1, owner: 3, assignee: 4, status: 1, createdAgo: 5},
	{typeID: 1, owner: 1, assignee: 2, status: 2, createdAgo: 3, updatedAgo: 1, history: []string{""}},
	{typeID: 1, owner: 4, assignee: 1, status: 3, requirement: sampleQuotes, createdAgo: 7, updatedAgo: 2, history: []string{"", sampleQuotes}},
	{typeID: 2, owner: 2, assignee: 5, status: 1, createdAgo: 4},
	{typeID: 2, owner: 3, assignee: 2, status: 2, createdAgo: 6, updatedAgo: 3, history: []string{""}},
	{typeID: 2, owner: 1, assignee: 4, status: 3, requirement: sampleSpec, createdAgo: 8, updatedAgo: 4, history: []string{"", sampleSpec}},
	{typeID: 2, owner: 4, assignee: 2, status: 4, requirement: sampleBranch, createdAgo: 10, updatedAgo: 5, history: []string{"", sampleSpec, sampleBranch}},
}

// SeedSampleData fills an empty database with the sample users, tasks, and
// requirement history. It reports whether anything was written.
func (s *SQLiteStore) SeedSampleData(ctx context.Context, now time.Time) (bool, error) {
	var users, tasks int
	if err := s.db.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM tasks)`).Scan(&users, &tasks); err != nil {
		return false, fmt.Errorf("count rows: %w", err)
	}
	if users > 0 || tasks > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	userIDs := make([]int64, len(sampleUsers))
	for i, name := range sampleUsers {
		res, err := tx.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, name)
		if err != nil {
			return false, fmt.Errorf("insert user %s: %w", name, err)
		}
		if userIDs[i], err = res.LastInsertId(); err != nil {
			return false, fmt.Errorf("insert user id: %w", err)
		}
	}

	day := 24 * time.Hour
	for _, st := range sampleTasks {
		created := now.Add(-time.Duration(st.createdAgo) * day)
		var updated *time.Time
		if st.updatedAgo > 0 {
			u := now.Add(-time.Duration(st.updatedAgo) * day)
			updated = &u
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (type_id, owner_user_id, next_assignee_user_id, status, requirement, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, st.typeID, userIDs[st.owner-1], userIDs[st.assignee-1], st.status, st.requirement, formatTime(created), nullTimeString(updated))
		if err != nil {
			return false, fmt.Errorf("insert sample task: %w", err)
		}
		taskID, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("insert sample task id: %w", err)
		}

		for i, value := range st.history {
			at := created.Add(time.Duration(i+1) * time.Hour)
			if err := upsertRequirement(ctx, tx, taskID, i+1, value, at); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}

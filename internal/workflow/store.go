package workflow

import (
	"context"
	"time"
)

// Store is the persistence the workflow engine depends on.
type Store interface {
	ListTasks(ctx context.Context, ownerUserID *int64) ([]Task, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	InsertTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id int64) (bool, error)
	ListRequirements(ctx context.Context, taskID int64) ([]RequirementRecord, error)
	ListUsers(ctx context.Context) ([]User, error)

	// WithTaskTx runs fn in a single transaction. Transactions are serialized,
	// so a transition always observes the committed result of the previous one.
	// The transaction rolls back if fn returns an error.
	WithTaskTx(ctx context.Context, fn func(tx TaskTx) error) error
}

// TaskTx is the read-modify-write view of the store inside WithTaskTx.
type TaskTx interface {
	GetTask(ctx context.Context, id int64) (*Task, error)
	// UpdateTaskStatus sets status and updated_at. A non-nil snapshot also
	// replaces the task's requirement snapshot.
	UpdateTaskStatus(ctx context.Context, id int64, status int, snapshot *string, at time.Time) error
	UpsertRequirement(ctx context.Context, taskID int64, statusID int, value string, at time.Time) error
	GetRequirement(ctx context.Context, taskID int64, statusID int) (string, bool, error)
}

// RequirementCheck is the input to per-type content rules.
type RequirementCheck struct {
	TaskID      int64
	TypeID      int
	TypeName    string
	StatusID    int
	StatusName  string
	Requirement string
}

// RequirementValidator applies content rules to requirement text beyond the
// non-blank check. It returns the violation messages, empty when the text is acceptable.
type RequirementValidator interface {
	ValidateRequirement(ctx context.Context, check RequirementCheck) ([]string, error)
}

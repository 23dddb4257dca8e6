package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/taskflow/internal/memory"
	"github.com/josephgoksu/taskflow/internal/policy"
	"github.com/josephgoksu/taskflow/internal/workflow"
)

func newTestService(t *testing.T) (*workflow.Service, []workflow.User) {
	t.Helper()
	ctx := context.Background()

	store, err := memory.NewSQLiteStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	users := []workflow.User{{Name: "Ann"}, {Name: "Ben"}}
	for i := range users {
		require.NoError(t, store.CreateUser(ctx, &users[i]))
	}

	catalog, err := workflow.DefaultCatalog()
	require.NoError(t, err)
	engine, err := policy.NewEngine(ctx, policy.EngineConfig{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)

	return workflow.NewService(catalog, store, workflow.WithValidator(engine)), users
}

func TestHandleTaskTool_InvalidAction(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := HandleTaskTool(context.Background(), svc, TaskToolParams{Action: "fly"})
	require.NoError(t, err)
	assert.Contains(t, res.Error, `invalid action "fly"`)
	assert.Contains(t, res.Error, "advance")
}

func TestHandleTaskTool_MissingTaskID(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := HandleTaskTool(context.Background(), svc, TaskToolParams{Action: TaskActionAdvance})
	require.NoError(t, err)
	assert.Equal(t, "task_id", res.Field)
	assert.Equal(t, "task_id is required", res.Error)
}

func TestHandleTaskTool_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestService(t)

	res, err := HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionCreate, TypeID: 1, UserID: users[0].ID})
	require.NoError(t, err)
	require.Empty(t, res.Error)
	assert.Contains(t, res.Content, "Task 1 created")
	assert.Contains(t, res.Content, "Ben (#2)")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: "ADVANCE", TaskID: 1})
	require.NoError(t, err)
	assert.Equal(t, "advance", res.Action)
	assert.Contains(t, res.Content, "## ✅ Advance")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionAdvance, TaskID: 1, Requirement: "only one"})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Contains(t, res.Content, "## ⚠️ Advance rejected")
	assert.Contains(t, res.Content, "at least 2 price quotes")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionAdvance, TaskID: 1, Requirement: "5,6"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Purchase completed")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionReverse, TaskID: 1})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "**Saved requirement**: 5,6")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionHistory, TaskID: 1})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "**1. Created**: _(none)_")
	assert.Contains(t, res.Content, "**2. Supplier offers received**: 5,6")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionList, UserID: users[0].ID})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "## Tasks (1)")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionGet, TaskID: 1})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "## Task 1: Procurement")

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionDelete, TaskID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Task 1 deleted.", res.Content)

	res, err = HandleTaskTool(ctx, svc, TaskToolParams{Action: TaskActionDelete, TaskID: 1})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "not found")
}

func TestHandleTaskTool_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := HandleTaskTool(context.Background(), svc, TaskToolParams{Action: TaskActionCreate, TypeID: 1})
	require.NoError(t, err)
	assert.Equal(t, "userId", res.Field)
	assert.NotEmpty(t, res.Error)
}

func TestHandleTaskTool_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := HandleTaskTool(context.Background(), svc, TaskToolParams{Action: TaskActionClose, TaskID: 77})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "77")
}

type brokenService struct {
	Service
}

func (brokenService) ListTasks(context.Context, *int64) ([]workflow.Task, error) {
	return nil, errors.New("database is locked")
}

func (brokenService) ListUsers(context.Context) ([]workflow.User, error) {
	return nil, errors.New("database is locked")
}

func TestHandleTaskTool_UnexpectedErrorPassesThrough(t *testing.T) {
	_, err := HandleTaskTool(context.Background(), brokenService{}, TaskToolParams{Action: TaskActionList})
	assert.EqualError(t, err, "database is locked")

	_, err = HandleUsersTool(context.Background(), brokenService{})
	assert.Error(t, err)
}

func TestHandleTypesAndUsersTools(t *testing.T) {
	svc, _ := newTestService(t)

	types := HandleTypesTool(svc)
	assert.Contains(t, types, "## 1. Procurement")
	assert.Contains(t, types, "3. Purchase completed (final): Need receipt")

	users, err := HandleUsersTool(context.Background(), svc)
	require.NoError(t, err)
	assert.Contains(t, users, "- 1: Ann")
}

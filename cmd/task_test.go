package cmd

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

func decodeOutput[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

func TestTaskCommands_ProcurementFlow(t *testing.T) {
	t.Setenv("TASKFLOW_DATA_DIR", t.TempDir())

	out, err := runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded")

	out, err = runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	out, err = runCLI(t, "users", "--json")
	require.NoError(t, err)
	users := decodeOutput[[]workflow.User](t, out)
	require.NotEmpty(t, users)
	owner := users[0].ID

	out, err = runCLI(t, "task", "create", "--type", "1", "--user", strconv.FormatInt(owner, 10), "--json")
	require.NoError(t, err)
	created := decodeOutput[workflow.TaskView](t, out)
	assert.Equal(t, 1, created.Status)
	assert.Equal(t, "Procurement", created.TypeName)
	assert.NotEqual(t, owner, created.NextAssigneeUserID)
	id := strconv.FormatInt(created.ID, 10)

	out, err = runCLI(t, "task", "advance", id, "--json")
	require.NoError(t, err)
	res := decodeOutput[transitionOutput](t, out)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Task.Status)

	out, err = runCLI(t, "task", "advance", id, "-r", "quoteA", "--json")
	require.NoError(t, err)
	res = decodeOutput[transitionOutput](t, out)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "at least 2 price quotes")
	assert.Equal(t, 2, res.Task.Status)

	out, err = runCLI(t, "task", "advance", id, "-r", "quoteA, quoteB", "--json")
	require.NoError(t, err)
	res = decodeOutput[transitionOutput](t, out)
	assert.True(t, res.Valid)
	assert.Equal(t, 3, res.Task.Status)
	assert.True(t, res.Task.IsFinal)

	out, err = runCLI(t, "task", "reverse", id, "--json")
	require.NoError(t, err)
	res = decodeOutput[transitionOutput](t, out)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Task.Status)
	require.NotNil(t, res.SavedRequirement)
	assert.Equal(t, "quoteA, quoteB", *res.SavedRequirement)

	out, err = runCLI(t, "task", "history", id, "--json")
	require.NoError(t, err)
	history := decodeOutput[[]workflow.RequirementRecord](t, out)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].StatusID)
	assert.Equal(t, 2, history[1].StatusID)
	assert.Equal(t, "quoteA, quoteB", history[1].Value)

	// Table output for humans.
	out, err = runCLI(t, "task", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Task "+id)

	out, err = runCLI(t, "task", "list", "--user", strconv.FormatInt(owner, 10), "--json")
	require.NoError(t, err)
	listed := decodeOutput[[]workflow.TaskView](t, out)
	for _, v := range listed {
		assert.Equal(t, owner, v.OwnerUserID)
	}

	out, err = runCLI(t, "task", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = runCLI(t, "task", "delete", id)
	assert.ErrorContains(t, err, "not found")

	_, err = runCLI(t, "task", "show", id)
	assert.ErrorContains(t, err, "not found")
}

func TestTaskCommands_Close(t *testing.T) {
	t.Setenv("TASKFLOW_DATA_DIR", t.TempDir())
	_, err := runCLI(t, "seed")
	require.NoError(t, err)

	out, err := runCLI(t, "task", "create", "--type", "1", "--user", "1", "--assignee", "2", "--json")
	require.NoError(t, err)
	created := decodeOutput[workflow.TaskView](t, out)
	assert.Equal(t, int64(2), created.NextAssigneeUserID)
	id := strconv.FormatInt(created.ID, 10)

	out, err = runCLI(t, "task", "close", id, "--json")
	require.NoError(t, err)
	res := decodeOutput[transitionOutput](t, out)
	assert.False(t, res.Valid)
	assert.Equal(t, "Task can only be closed from final status", res.Message)

	for _, args := range [][]string{
		{"task", "advance", id},
		{"task", "advance", id, "-r", "q1, q2"},
		{"task", "close", id},
	} {
		_, err = runCLI(t, args...)
		require.NoError(t, err)
	}

	out, err = runCLI(t, "task", "show", id, "--json")
	require.NoError(t, err)
	closed := decodeOutput[workflow.TaskView](t, out)
	assert.True(t, closed.Closed)
	assert.Equal(t, workflow.StatusClosed, closed.Status)

	out, err = runCLI(t, "task", "reverse", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cannot reverse a closed task")
}

func TestTaskCommands_Errors(t *testing.T) {
	t.Setenv("TASKFLOW_DATA_DIR", t.TempDir())
	_, err := runCLI(t, "seed")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"non-numeric id", []string{"task", "show", "abc"}, "invalid task id"},
		{"zero id", []string{"task", "advance", "0"}, "invalid task id"},
		{"missing flags", []string{"task", "create"}, "required flag"},
		{"unknown type", []string{"task", "create", "--type", "99", "--user", "1"}, "not found"},
		{"unknown owner", []string{"task", "create", "--type", "1", "--user", "999"}, "user 999 does not exist"},
		{"bad custom fields", []string{"task", "create", "--type", "1", "--user", "1", "--custom-fields", "{"}, "customFields"},
		{"extra args", []string{"task", "close", "1", "2"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestTypesCmd(t *testing.T) {
	out, err := runCLI(t, "types", "--json")
	require.NoError(t, err)
	types := decodeOutput[[]workflow.TaskType](t, out)
	require.NotEmpty(t, types)
	assert.Equal(t, "Procurement", types[0].Name)

	out, err = runCLI(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Procurement")
	assert.Contains(t, out, "(final)")
}

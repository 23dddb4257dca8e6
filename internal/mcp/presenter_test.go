package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

func TestFormatTask(t *testing.T) {
	v := &workflow.TaskView{
		ID: 3, TypeName: "Development", Status: 2, StatusName: "Specification completed",
		OwnerUserID: 1, OwnerName: "Ann", NextAssigneeUserID: 9,
		Requirement: "spec v1", NextStatusName: "Development completed",
		NextPrompt: "Need branch name", RequiresRequirement: true,
		CreatedAt: time.Now(),
	}

	out := FormatTask(v)
	assert.Contains(t, out, "## Task 3: Development")
	assert.Contains(t, out, "- **Owner**: Ann (#1)")
	assert.Contains(t, out, "- **Next assignee**: #9")
	assert.Contains(t, out, "- **Last requirement**: spec v1")
	assert.Contains(t, out, "**Next**: Development completed (Need branch name)")
	assert.Contains(t, out, "A requirement is needed to advance.")

	v.IsFinal, v.NextStatusName = true, ""
	assert.Contains(t, FormatTask(v), "Use action `close`")

	v.Closed = true
	assert.Contains(t, FormatTask(v), "This task is closed.")

	assert.Equal(t, "No task information.", FormatTask(nil))
}

func TestFormatTaskList(t *testing.T) {
	assert.Equal(t, "No tasks found.", FormatTaskList(nil))

	out := FormatTaskList([]workflow.TaskView{
		{ID: 2, TypeName: "Procurement", StatusName: "Created", OwnerUserID: 1, OwnerName: "Ann", NextAssigneeUserID: 2, NextAssigneeName: "Ben"},
	})
	assert.Contains(t, out, "## Tasks (1)")
	assert.Contains(t, out, "| 2 | Procurement | Created | Ann (#1) | Ben (#2) |")
}

func TestFormatHistory(t *testing.T) {
	catalog, err := workflow.DefaultCatalog()
	require.NoError(t, err)
	task := &workflow.Task{ID: 5, TypeID: 2}

	assert.Equal(t, "No requirement history for task 5.", FormatHistory(task, nil, catalog))

	out := FormatHistory(task, []workflow.RequirementRecord{
		{StatusID: 1, Value: ""},
		{StatusID: 2, Value: "feature/login"},
	}, catalog)
	assert.Contains(t, out, "**1. Created**: _(none)_")
	assert.Contains(t, out, "**2. Specification completed**: feature/login")
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "## ❌ Error\n\n**Details**: boom", FormatError("boom"))
	assert.Contains(t, FormatValidationError("task_id", "task_id is required"), "**Field**: `task_id`")
}

func TestFormatUsers(t *testing.T) {
	assert.Equal(t, "No users found.", FormatUsers(nil))
	out := FormatUsers([]workflow.User{{ID: 1, Name: "Ann", Email: "ann@example.com"}})
	assert.Equal(t, "## Users\n- 1: Ann <ann@example.com>", out)
}

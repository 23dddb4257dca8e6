// Package mcp exposes the workflow service as Model Context Protocol tools.
package mcp

// TaskAction defines the valid actions for the unified task tool.
type TaskAction string

const (
	TaskActionList    TaskAction = "list"
	TaskActionGet     TaskAction = "get"
	TaskActionCreate  TaskAction = "create"
	TaskActionAdvance TaskAction = "advance"
	TaskActionReverse TaskAction = "reverse"
	TaskActionClose   TaskAction = "close"
	TaskActionDelete  TaskAction = "delete"
	TaskActionHistory TaskAction = "history"
)

// ValidTaskActions returns all valid task actions.
func ValidTaskActions() []TaskAction {
	return []TaskAction{
		TaskActionList, TaskActionGet, TaskActionCreate, TaskActionAdvance,
		TaskActionReverse, TaskActionClose, TaskActionDelete, TaskActionHistory,
	}
}

// IsValid checks if the action is a valid task action.
func (a TaskAction) IsValid() bool {
	for _, v := range ValidTaskActions() {
		if a == v {
			return true
		}
	}
	return false
}

// requiresTaskID reports whether the action operates on an existing task.
func (a TaskAction) requiresTaskID() bool {
	switch a {
	case TaskActionList, TaskActionCreate:
		return false
	}
	return true
}

// TaskToolParams defines the parameters for the unified task tool.
type TaskToolParams struct {
	// Action specifies which operation to perform.
	// Required. One of: list, get, create, advance, reverse, close, delete, history
	Action TaskAction `json:"action"`

	// TaskID identifies the task.
	// Required for: get, advance, reverse, close, delete, history
	TaskID int64 `json:"task_id,omitempty"`

	// UserID is the owner of a new task, or the owner filter for list.
	// Required for: create. Optional for: list
	UserID int64 `json:"user_id,omitempty"`

	// TypeID is the task type of a new task.
	// Required for: create
	TypeID int `json:"type_id,omitempty"`

	// NextAssigneeUserID is the next assignee of a new task. Picked at
	// random among the other users when omitted.
	// Optional for: create
	NextAssigneeUserID *int64 `json:"next_assignee_user_id,omitempty"`

	// Requirement is the evidence text for the status being left.
	// Optional for: advance, create
	Requirement string `json:"requirement,omitempty"`

	// CustomFields is an opaque JSON document stored with a new task.
	// Optional for: create
	CustomFields string `json:"custom_fields,omitempty"`
}

// TaskToolResult is the response of the unified task tool.
type TaskToolResult struct {
	Action  string `json:"action"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
	// Field is set when Error is a validation failure of one parameter.
	Field string `json:"field,omitempty"`
}

// TypesToolParams takes no arguments.
type TypesToolParams struct{}

// UsersToolParams takes no arguments.
type UsersToolParams struct{}

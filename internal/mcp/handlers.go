package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// Service is the part of workflow.Service the tools use.
type Service interface {
	ListTasks(ctx context.Context, ownerUserID *int64) ([]workflow.Task, error)
	GetTask(ctx context.Context, id int64) (*workflow.Task, error)
	CreateTask(ctx context.Context, req workflow.CreateTaskRequest) (*workflow.Task, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)
	AdvanceTask(ctx context.Context, id int64, requirement string) (*workflow.TransitionResult, error)
	ReverseTask(ctx context.Context, id int64) (*workflow.ReverseResult, error)
	CloseTask(ctx context.Context, id int64) (*workflow.TransitionResult, error)
	ListTaskTypes() []workflow.TaskType
	ListStatusHistory(ctx context.Context, taskID int64) ([]workflow.RequirementRecord, error)
	ListUsers(ctx context.Context) ([]workflow.User, error)
	DescribeTasks(ctx context.Context, tasks []workflow.Task) ([]workflow.TaskView, error)
	DescribeTask(ctx context.Context, t *workflow.Task) (*workflow.TaskView, error)
	Catalog() *workflow.Catalog
}

// HandleTaskTool is the unified handler for task operations. Caller
// mistakes and rejected transitions come back in the result; the returned
// error is reserved for storage failures.
func HandleTaskTool(ctx context.Context, svc Service, params TaskToolParams) (*TaskToolResult, error) {
	action := TaskAction(strings.ToLower(strings.TrimSpace(string(params.Action))))
	if !action.IsValid() {
		return &TaskToolResult{
			Action: string(params.Action),
			Error:  fmt.Sprintf("invalid action %q, must be one of: %s", params.Action, joinActions()),
		}, nil
	}
	if action.requiresTaskID() && params.TaskID <= 0 {
		return &TaskToolResult{Action: string(action), Field: "task_id", Error: "task_id is required"}, nil
	}

	var (
		content string
		err     error
	)
	switch action {
	case TaskActionList:
		content, err = handleList(ctx, svc, params)
	case TaskActionGet:
		content, err = handleGet(ctx, svc, params)
	case TaskActionCreate:
		content, err = handleCreate(ctx, svc, params)
	case TaskActionAdvance:
		content, err = handleAdvance(ctx, svc, params)
	case TaskActionReverse:
		content, err = handleReverse(ctx, svc, params)
	case TaskActionClose:
		content, err = handleClose(ctx, svc, params)
	case TaskActionDelete:
		content, err = handleDelete(ctx, svc, params)
	case TaskActionHistory:
		content, err = handleHistory(ctx, svc, params)
	}

	if err != nil {
		return userError(action, err)
	}
	return &TaskToolResult{Action: string(action), Content: content}, nil
}

// userError turns expected service errors into tool results and passes
// anything else through.
func userError(action TaskAction, err error) (*TaskToolResult, error) {
	var (
		ve *workflow.ValidationError
		be *workflow.BusinessError
	)
	switch {
	case errors.As(err, &ve):
		return &TaskToolResult{Action: string(action), Field: ve.Field, Error: ve.Message}, nil
	case errors.As(err, &be):
		return &TaskToolResult{Action: string(action), Error: be.Message}, nil
	case workflow.IsNotFound(err):
		return &TaskToolResult{Action: string(action), Error: err.Error()}, nil
	}
	return nil, err
}

func joinActions() string {
	actions := ValidTaskActions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func handleList(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	var owner *int64
	if params.UserID > 0 {
		owner = &params.UserID
	}
	tasks, err := svc.ListTasks(ctx, owner)
	if err != nil {
		return "", err
	}
	views, err := svc.DescribeTasks(ctx, tasks)
	if err != nil {
		return "", err
	}
	return FormatTaskList(views), nil
}

func handleGet(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	task, err := svc.GetTask(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	view, err := svc.DescribeTask(ctx, task)
	if err != nil {
		return "", err
	}
	return FormatTask(view), nil
}

func handleCreate(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	task, err := svc.CreateTask(ctx, workflow.CreateTaskRequest{
		TypeID:             params.TypeID,
		OwnerUserID:        params.UserID,
		NextAssigneeUserID: params.NextAssigneeUserID,
		Requirement:        params.Requirement,
		CustomFields:       params.CustomFields,
	})
	if err != nil {
		return "", err
	}
	view, err := svc.DescribeTask(ctx, task)
	if err != nil {
		return "", err
	}
	return FormatTransition(string(TaskActionCreate), true, fmt.Sprintf("Task %d created", task.ID), view), nil
}

func handleAdvance(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	res, err := svc.AdvanceTask(ctx, params.TaskID, params.Requirement)
	if err != nil {
		return "", err
	}
	return describeTransition(ctx, svc, TaskActionAdvance, res)
}

func handleReverse(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	res, err := svc.ReverseTask(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	out, err := describeTransition(ctx, svc, TaskActionReverse, &res.TransitionResult)
	if err != nil {
		return "", err
	}
	if res.Valid && res.SavedRequirement != nil {
		out += fmt.Sprintf("\n\n**Saved requirement**: %s", *res.SavedRequirement)
	}
	return out, nil
}

func handleClose(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	res, err := svc.CloseTask(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	return describeTransition(ctx, svc, TaskActionClose, res)
}

func handleDelete(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	deleted, err := svc.DeleteTask(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", fmt.Errorf("task %d: %w", params.TaskID, workflow.ErrNotFound)
	}
	return fmt.Sprintf("Task %d deleted.", params.TaskID), nil
}

func handleHistory(ctx context.Context, svc Service, params TaskToolParams) (string, error) {
	task, err := svc.GetTask(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	records, err := svc.ListStatusHistory(ctx, params.TaskID)
	if err != nil {
		return "", err
	}
	return FormatHistory(task, records, svc.Catalog()), nil
}

func describeTransition(ctx context.Context, svc Service, action TaskAction, res *workflow.TransitionResult) (string, error) {
	var view *workflow.TaskView
	if res.Task != nil {
		v, err := svc.DescribeTask(ctx, res.Task)
		if err != nil {
			return "", err
		}
		view = v
	}
	return FormatTransition(string(action), res.Valid, res.Message, view), nil
}

// HandleTypesTool lists task types and their status sequences.
func HandleTypesTool(svc Service) string {
	return FormatTypes(svc.ListTaskTypes())
}

// HandleUsersTool lists the user directory.
func HandleUsersTool(ctx context.Context, svc Service) (string, error) {
	users, err := svc.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	return FormatUsers(users), nil
}

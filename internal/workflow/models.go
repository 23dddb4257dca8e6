// Package workflow implements the task workflow state machine: per-type status
// catalogs, the advance/reverse/close transitions, and the requirement history
// attached to each status a task leaves.
package workflow

import (
	"strings"
	"time"
)

// StatusClosed is the absorbing terminal status. It is reached only by closing
// a task that sits on its type's final status.
const StatusClosed = 0

// StatusDefinition is one step in a task type's status sequence.
// RequirementPrompt names the evidence needed to leave the status.
type StatusDefinition struct {
	TypeID                 int    `json:"typeId" yaml:"-"`
	StatusID               int    `json:"statusId" yaml:"id"`
	Name                   string `json:"name" yaml:"name"`
	IsFinal                bool   `json:"isFinal" yaml:"final"`
	RequirementPrompt      string `json:"requirement" yaml:"requirement"`
	RequirementDescription string `json:"requirementDescription,omitempty" yaml:"description"`
}

// RequiresEvidence reports whether leaving this status needs requirement text.
func (d StatusDefinition) RequiresEvidence() bool {
	return strings.TrimSpace(d.RequirementPrompt) != ""
}

// Label returns the human-readable requirement label, falling back to the prompt.
func (d StatusDefinition) Label() string {
	if d.RequirementDescription != "" {
		return d.RequirementDescription
	}
	return d.RequirementPrompt
}

// TaskType owns an ordered, dense, 1-based status sequence.
type TaskType struct {
	TypeID   int                `json:"typeId" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	Statuses []StatusDefinition `json:"statuses" yaml:"statuses"`
}

// Task is the current state of a tracked task.
// RequirementSnapshot holds the last submitted requirement text and is
// informational only.
type Task struct {
	ID                  int64      `json:"id"`
	TypeID              int        `json:"typeId"`
	OwnerUserID         int64      `json:"userId"`
	NextAssigneeUserID  int64      `json:"nextAssignedUserId"`
	Status              int        `json:"status"`
	RequirementSnapshot string     `json:"requirement"`
	CustomFields        string     `json:"customFields,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// IsClosed reports whether the task reached the closed sentinel status.
func (t *Task) IsClosed() bool {
	return t.Status == StatusClosed
}

// RequirementRecord is the evidence submitted when a task left StatusID.
type RequirementRecord struct {
	TaskID    int64     `json:"taskId"`
	StatusID  int       `json:"statusId"`
	Value     string    `json:"requirementValue"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is a row of the collaborator directory.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TransitionResult is the outcome of a workflow transition. A rejected
// transition is reported with Valid=false and leaves the task unchanged.
type TransitionResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Task    *Task  `json:"task,omitempty"`
}

// ReverseResult carries the requirement saved when the task last left the
// status it re-entered, or nil if none was recorded.
type ReverseResult struct {
	TransitionResult
	SavedRequirement *string `json:"savedRequirement"`
}

// CreateTaskRequest describes a new task.
type CreateTaskRequest struct {
	TypeID             int    `json:"typeId" validate:"required,gt=0"`
	OwnerUserID        int64  `json:"userId" validate:"required,gt=0"`
	NextAssigneeUserID *int64 `json:"nextAssignedUserId,omitempty" validate:"omitempty,gt=0"`
	Requirement        string `json:"requirement"`
	CustomFields       string `json:"customFields,omitempty" validate:"omitempty,json"`
}

package workflow

import (
	"context"
	"time"
)

// TaskView is a task joined with the names its ids refer to.
type TaskView struct {
	ID                  int64      `json:"id"`
	TypeID              int        `json:"typeId"`
	TypeName            string     `json:"typeName"`
	OwnerUserID         int64      `json:"userId"`
	OwnerName           string     `json:"userName"`
	NextAssigneeUserID  int64      `json:"nextAssignedUserId"`
	NextAssigneeName    string     `json:"nextAssignedUserName"`
	Status              int        `json:"status"`
	StatusName          string     `json:"statusName"`
	IsFinal             bool       `json:"isFinal"`
	Closed              bool       `json:"closed"`
	Requirement         string     `json:"requirement"`
	CustomFields        string     `json:"customFields,omitempty"`
	NextStatusName      string     `json:"nextStatusName,omitempty"`
	NextPrompt          string     `json:"nextPrompt,omitempty"`
	RequiresRequirement bool       `json:"requiresRequirement"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// DescribeTasks builds views for tasks, resolving user names once.
func (s *Service) DescribeTasks(ctx context.Context, tasks []Task) ([]TaskView, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, s.describe(&tasks[i], names))
	}
	return views, nil
}

// DescribeTask builds the view for a single task.
func (s *Service) DescribeTask(ctx context.Context, t *Task) (*TaskView, error) {
	views, err := s.DescribeTasks(ctx, []Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) describe(t *Task, names map[int64]string) TaskView {
	v := TaskView{
		ID:                 t.ID,
		TypeID:             t.TypeID,
		OwnerUserID:        t.OwnerUserID,
		OwnerName:          names[t.OwnerUserID],
		NextAssigneeUserID: t.NextAssigneeUserID,
		NextAssigneeName:   names[t.NextAssigneeUserID],
		Status:             t.Status,
		StatusName:         s.catalog.StatusName(t.TypeID, t.Status),
		Closed:             t.IsClosed(),
		Requirement:        t.RequirementSnapshot,
		CustomFields:       t.CustomFields,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if tt, ok := s.catalog.Type(t.TypeID); ok {
		v.TypeName = tt.Name
	}
	if cur, ok := s.catalog.Status(t.TypeID, t.Status); ok {
		v.IsFinal = cur.IsFinal
		v.RequiresRequirement = cur.RequiresEvidence()
	}
	if next := s.NextPrompt(t); next != nil {
		v.NextStatusName = next.Name
		v.NextPrompt = next.Label()
	}
	return v
}

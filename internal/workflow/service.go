package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultMaxRequirementLength caps requirement text on create and advance.
const DefaultMaxRequirementLength = 500

const (
	msgAdvanced        = "Advancement validated successfully"
	msgReversed        = "Task reversed successfully"
	msgClosed          = "Closure validated successfully"
	msgClosedTask      = "Task is closed and cannot be modified"
	msgBeyondFinal     = "Cannot advance beyond final status"
	msgReverseClosed   = "Cannot reverse a closed task"
	msgReverseFloor    = "Cannot reverse below status 1"
	msgAlreadyClosed   = "Task is already closed"
	msgInvalidClosure  = "Invalid status for closure"
	msgCloseNotFinal   = "Task can only be closed from final status"
	msgNoOtherAssignee = "Cannot create task: no other users available for next assignment"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Service executes workflow operations against a catalog and a store.
type Service struct {
	catalog   *Catalog
	store     Store
	validator RequirementValidator
	events    EventSink
	now       func() time.Time
	pick      func(n int) int
	maxReqLen int
}

// Option configures a Service.
type Option func(*Service)

// WithValidator installs per-type content rules for requirement text.
func WithValidator(v RequirementValidator) Option {
	return func(s *Service) { s.validator = v }
}

// WithEventSink sets where transition events are emitted.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPicker overrides the random choice of next assignee. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// WithMaxRequirementLength sets the maximum requirement length in characters.
func WithMaxRequirementLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReqLen = n
		}
	}
}

// NewService creates a workflow service.
func NewService(catalog *Catalog, store Store, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		store:     store,
		events:    noopSink{},
		now:       func() time.Time { return time.Now().UTC() },
		pick:      rand.IntN,
		maxReqLen: DefaultMaxRequirementLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the status catalog the service runs against.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ListTasks returns tasks newest first, optionally restricted to one owner.
func (s *Service) ListTasks(ctx context.Context, ownerUserID *int64) ([]Task, error) {
	return s.store.ListTasks(ctx, ownerUserID)
}

// GetTask returns one task or an error wrapping ErrNotFound.
func (s *Service) GetTask(ctx context.Context, id int64) (*Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListTaskTypes returns every task type with its ordered statuses.
func (s *Service) ListTaskTypes() []TaskType {
	return s.catalog.Types()
}

// ListStatusHistory returns the requirement records of a task ordered by status.
func (s *Service) ListStatusHistory(ctx context.Context, taskID int64) ([]RequirementRecord, error) {
	return s.store.ListRequirements(ctx, taskID)
}

// ListUsers returns the collaborator directory ordered by name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// NextPrompt returns the status a task would advance into, whose requirement
// is shown next to the evidence input. It returns nil for closed tasks and
// tasks on their final status.
func (s *Service) NextPrompt(t *Task) *StatusDefinition {
	if t == nil || t.IsClosed() {
		return nil
	}
	next, ok := s.catalog.Status(t.TypeID, t.Status+1)
	if !ok {
		return nil
	}
	return &next
}

// CreateTask stores a new task at its type's initial status. When no next
// assignee is given, or it equals the owner, one is picked at random among
// the other users.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	if err := validate.Struct(req); err != nil {
		return nil, requestError(err)
	}
	if err := s.checkLength("requirement", req.Requirement); err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Type(req.TypeID); !ok {
		return nil, notFound("task type", req.TypeID)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if !containsUser(users, req.OwnerUserID) {
		return nil, &ValidationError{Field: "userId", Message: fmt.Sprintf("user %d does not exist", req.OwnerUserID)}
	}

	var assignee int64
	if req.NextAssigneeUserID != nil && *req.NextAssigneeUserID != req.OwnerUserID {
		if !containsUser(users, *req.NextAssigneeUserID) {
			return nil, &ValidationError{Field: "nextAssignedUserId", Message: fmt.Sprintf("user %d does not exist", *req.NextAssigneeUserID)}
		}
		assignee = *req.NextAssigneeUserID
	} else {
		eligible := make([]int64, 0, len(users))
		for _, u := range users {
			if u.ID != req.OwnerUserID {
				eligible = append(eligible, u.ID)
			}
		}
		if len(eligible) == 0 {
			return nil, &BusinessError{Message: msgNoOtherAssignee}
		}
		assignee = eligible[s.pick(len(eligible))]
	}

	t := &Task{
		TypeID:              req.TypeID,
		OwnerUserID:         req.OwnerUserID,
		NextAssigneeUserID:  assignee,
		Status:              s.catalog.MinStatus(req.TypeID),
		RequirementSnapshot: req.Requirement,
		CustomFields:        req.CustomFields,
		CreatedAt:           s.now(),
	}
	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.emit(ctx, TransitionEvent{Kind: KindCreate, TaskID: t.ID, TypeID: t.TypeID, ToStatus: t.Status}, true, "Task created")
	return t, nil
}

// DeleteTask hard-deletes a task and its requirement history. It reports
// whether a task was removed.
func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.emit(ctx, TransitionEvent{Kind: KindDelete, TaskID: id}, true, "Task deleted")
	}
	return deleted, nil
}

// AdvanceTask moves a task to the next status in its sequence. The text is
// validated against the requirement of the status being left and stored
// under that status.
func (s *Service) AdvanceTask(ctx context.Context, id int64, requirement string) (*TransitionResult, error) {
	if err := s.checkLength("requirement", requirement); err != nil {
		return nil, err
	}

	ev := TransitionEvent{Kind: KindAdvance, TaskID: id, Requirement: requirement}
	var res *TransitionResult
	err := s.store.WithTaskTx(ctx, func(tx TaskTx) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		ev.TypeID, ev.FromStatus, ev.ToStatus = t.TypeID, t.Status, t.Status

		res, err = s.advance(ctx, tx, t, requirement)
		if err != nil {
			return err
		}
		ev.ToStatus = res.Task.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ev, res.Valid, res.Message)
	return res, nil
}

func (s *Service) advance(ctx context.Context, tx TaskTx, t *Task, text string) (*TransitionResult, error) {
	if t.IsClosed() {
		return rejected(msgClosedTask, t), nil
	}
	current, ok := s.catalog.Status(t.TypeID, t.Status)
	if !ok {
		return rejected(fmt.Sprintf("Task is in unknown status %d", t.Status), t), nil
	}
	next := t.Status + 1
	if _, ok := s.catalog.Status(t.TypeID, next); !ok {
		return rejected(msgBeyondFinal, t), nil
	}
	if current.RequiresEvidence() && strings.TrimSpace(text) == "" {
		return rejected("Requirement required: "+current.Label(), t), nil
	}

	if s.validator != nil {
		tt, _ := s.catalog.Type(t.TypeID)
		violations, err := s.validator.ValidateRequirement(ctx, RequirementCheck{
			TaskID:      t.ID,
			TypeID:      t.TypeID,
			TypeName:    tt.Name,
			StatusID:    current.StatusID,
			StatusName:  current.Name,
			Requirement: text,
		})
		if err != nil {
			return nil, fmt.Errorf("validate requirement: %w", err)
		}
		if len(violations) > 0 {
			return rejected(strings.Join(violations, "; "), t), nil
		}
	}

	now := s.now()
	if err := tx.UpsertRequirement(ctx, t.ID, t.Status, text, now); err != nil {
		return nil, err
	}
	if err := tx.UpdateTaskStatus(ctx, t.ID, next, &text, now); err != nil {
		return nil, err
	}
	t.Status = next
	t.RequirementSnapshot = text
	t.UpdatedAt = &now
	return accepted(msgAdvanced, t), nil
}

// ReverseTask moves a task back one status and returns the requirement that
// was saved when the task last left that status. History is left untouched.
func (s *Service) ReverseTask(ctx context.Context, id int64) (*ReverseResult, error) {
	ev := TransitionEvent{Kind: KindReverse, TaskID: id}
	var res *ReverseResult
	err := s.store.WithTaskTx(ctx, func(tx TaskTx) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		ev.TypeID, ev.FromStatus, ev.ToStatus = t.TypeID, t.Status, t.Status

		switch {
		case t.IsClosed():
			res = &ReverseResult{TransitionResult: *rejected(msgReverseClosed, t)}
			return nil
		case t.Status <= 1:
			res = &ReverseResult{TransitionResult: *rejected(msgReverseFloor, t)}
			return nil
		}

		previous := t.Status - 1
		value, found, err := tx.GetRequirement(ctx, t.ID, previous)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdateTaskStatus(ctx, t.ID, previous, nil, now); err != nil {
			return err
		}
		t.Status = previous
		t.UpdatedAt = &now
		ev.ToStatus = previous

		res = &ReverseResult{TransitionResult: *accepted(msgReversed, t)}
		if found {
			res.SavedRequirement = &value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ev, res.Valid, res.Message)
	return res, nil
}

// CloseTask moves a task on its final status to the closed sentinel. Closing is irreversible.
func (s *Service) CloseTask(ctx context.Context, id int64) (*TransitionResult, error) {
	ev := TransitionEvent{Kind: KindClose, TaskID: id}
	var res *TransitionResult
	err := s.store.WithTaskTx(ctx, func(tx TaskTx) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		ev.TypeID, ev.FromStatus, ev.ToStatus = t.TypeID, t.Status, t.Status

		if t.IsClosed() {
			res = rejected(msgAlreadyClosed, t)
			return nil
		}
		def, ok := s.catalog.Status(t.TypeID, t.Status)
		if !ok {
			res = rejected(msgInvalidClosure, t)
			return nil
		}
		if !def.IsFinal {
			res = rejected(msgCloseNotFinal, t)
			return nil
		}

		now := s.now()
		if err := tx.UpdateTaskStatus(ctx, t.ID, StatusClosed, nil, now); err != nil {
			return err
		}
		t.Status = StatusClosed
		t.UpdatedAt = &now
		ev.ToStatus = StatusClosed
		res = accepted(msgClosed, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ev, res.Valid, res.Message)
	return res, nil
}

func (s *Service) checkLength(field, text string) error {
	if n := utf8.RuneCountInString(text); n > s.maxReqLen {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters, got %d", s.maxReqLen, n)}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, ev TransitionEvent, accepted bool, message string) {
	ev.ID = uuid.NewString()
	ev.Accepted = accepted
	ev.Message = message
	ev.At = s.now()
	s.events.Emit(ctx, ev)
}

func accepted(msg string, t *Task) *TransitionResult {
	return &TransitionResult{Valid: true, Message: msg, Task: t}
}

func rejected(msg string, t *Task) *TransitionResult {
	return &TransitionResult{Valid: false, Message: msg, Task: t}
}

func containsUser(users []User, id int64) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// requestError converts validator output into a ValidationError for the first failing field.
func requestError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "json":
		msg = "must be valid JSON"
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

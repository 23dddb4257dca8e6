package server

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// formError is a request that failed to parse.
type formError struct {
	Field   string
	Message string
}

func (e *formError) Error() string { return e.Message }

// AdvanceRequest is the body of POST /api/tasks/:id/advance.
type AdvanceRequest struct {
	TaskID      *int64 `json:"taskId,omitempty"`
	Requirement string `json:"requirement"`
}

// advanceForm parses an advance request and checks it against the path id.
type advanceForm struct {
	TaskID      int64
	Requirement string
}

func (f *advanceForm) ParseAndValidate(c *gin.Context, pathID int64) error {
	var req AdvanceRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.TaskID != nil && *req.TaskID != pathID {
		return &formError{Field: "taskId", Message: "ID mismatch"}
	}
	f.TaskID = pathID
	f.Requirement = req.Requirement
	return nil
}

// createForm parses a create request. Field rules are enforced by the service.
type createForm struct {
	Request workflow.CreateTaskRequest
}

func (f *createForm) ParseAndValidate(c *gin.Context) error {
	return decodeBody(c, &f.Request)
}

// decodeBody reads a JSON body. An empty body decodes to the zero value.
func decodeBody(c *gin.Context, dst any) error {
	body, err := io.ReadAll(c.Request.Body)
	defer c.Request.Body.Close()
	if err != nil {
		return &formError{Message: "unable to read request body"}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &formError{Field: typeErr.Field, Message: "invalid value for " + typeErr.Field}
		}
		return &formError{Message: "invalid request structure"}
	}
	return nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &formError{Field: "id", Message: "id must be a positive integer"}
	}
	return id, nil
}

// parseOwnerFilter reads the optional ?userId= filter.
func parseOwnerFilter(c *gin.Context) (*int64, error) {
	raw := c.Query("userId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &formError{Field: "userId", Message: "userId must be a positive integer"}
	}
	return &id, nil
}

// TransitionResponse is returned by advance and close.
type TransitionResponse struct {
	Valid   bool               `json:"valid"`
	Message string             `json:"message"`
	Task    *workflow.TaskView `json:"task,omitempty"`
}

// ReverseResponse adds the requirement restored with the previous status.
type ReverseResponse struct {
	TransitionResponse
	SavedRequirement *string              `json:"savedRequirement"`
	Requirements     []RequirementPayload `json:"requirements"`
}

type RequirementPayload struct {
	StatusID         int    `json:"statusId"`
	RequirementValue string `json:"requirementValue"`
}

// HistoryEntry is one requirement record with its status name.
type HistoryEntry struct {
	workflow.RequirementRecord
	StatusName string `json:"statusName"`
}

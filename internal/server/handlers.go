package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// HealthMessage is the body of GET /api/health.
const HealthMessage = "Tasks API is working!"

func (s *Server) fail(c *gin.Context, op string, err error) {
	var fe *formError
	if errors.As(err, &fe) {
		badRequest(c, fe.Field, fe.Message)
		return
	}
	s.writeError(c, op, err)
}

func (s *Server) healthAction(c *gin.Context) {
	c.String(http.StatusOK, HealthMessage)
}

func (s *Server) listUsersAction(c *gin.Context) {
	const op = "server.listUsers"

	users, err := s.svc.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) listTasksAction(c *gin.Context) {
	const op = "server.listTasks"

	owner, err := parseOwnerFilter(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}

	tasks, err := s.svc.ListTasks(c.Request.Context(), owner)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	views, err := s.svc.DescribeTasks(c.Request.Context(), tasks)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getTaskAction(c *gin.Context) {
	const op = "server.getTask"

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	task, err := s.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	s.respondTask(c, op, http.StatusOK, task)
}

func (s *Server) createTaskAction(c *gin.Context) {
	const op = "server.createTask"
	log := s.log.WithField("operation", op)

	var form createForm
	if err := form.ParseAndValidate(c); err != nil {
		s.fail(c, op, err)
		return
	}

	task, err := s.svc.CreateTask(c.Request.Context(), form.Request)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	log.WithField("task_id", task.ID).Info("task created")
	s.respondTask(c, op, http.StatusCreated, task)
}

func (s *Server) deleteTaskAction(c *gin.Context) {
	const op = "server.deleteTask"

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	deleted, err := s.svc.DeleteTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if !deleted {
		c.AbortWithStatusJSON(http.StatusNotFound, apiError{Message: "task not found", Type: errTypeNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) advanceTaskAction(c *gin.Context) {
	const op = "server.advanceTask"

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	var form advanceForm
	if err := form.ParseAndValidate(c, id); err != nil {
		s.fail(c, op, err)
		return
	}

	res, err := s.svc.AdvanceTask(c.Request.Context(), form.TaskID, form.Requirement)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	s.respondTransition(c, op, res)
}

func (s *Server) reverseTaskAction(c *gin.Context) {
	const op = "server.reverseTask"
	ctx := c.Request.Context()

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	res, err := s.svc.ReverseTask(ctx, id)
	if err != nil {
		s.fail(c, op, err)
		return
	}

	resp := ReverseResponse{
		TransitionResponse: TransitionResponse{Valid: res.Valid, Message: res.Message},
		SavedRequirement:   res.SavedRequirement,
		Requirements:       []RequirementPayload{},
	}
	if res.Valid {
		history, err := s.svc.ListStatusHistory(ctx, id)
		if err != nil {
			s.fail(c, op, err)
			return
		}
		for _, r := range history {
			if r.StatusID == res.Task.Status {
				resp.Requirements = append(resp.Requirements, RequirementPayload{StatusID: r.StatusID, RequirementValue: r.Value})
			}
		}
	}
	if res.Task != nil {
		view, err := s.svc.DescribeTask(ctx, res.Task)
		if err != nil {
			s.fail(c, op, err)
			return
		}
		resp.Task = view
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) closeTaskAction(c *gin.Context) {
	const op = "server.closeTask"

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	res, err := s.svc.CloseTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	s.respondTransition(c, op, res)
}

func (s *Server) historyAction(c *gin.Context) {
	const op = "server.history"
	ctx := c.Request.Context()

	id, err := parseID(c)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	task, err := s.svc.GetTask(ctx, id)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	history, err := s.svc.ListStatusHistory(ctx, id)
	if err != nil {
		s.fail(c, op, err)
		return
	}

	catalog := s.svc.Catalog()
	entries := make([]HistoryEntry, 0, len(history))
	for _, r := range history {
		entries = append(entries, HistoryEntry{RequirementRecord: r, StatusName: catalog.StatusName(task.TypeID, r.StatusID)})
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) listTaskTypesAction(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.ListTaskTypes())
}

func (s *Server) respondTask(c *gin.Context, op string, status int, task *workflow.Task) {
	view, err := s.svc.DescribeTask(c.Request.Context(), task)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(status, view)
}

// respondTransition reports accepted and rejected transitions alike with 200.
func (s *Server) respondTransition(c *gin.Context, op string, res *workflow.TransitionResult) {
	resp := TransitionResponse{Valid: res.Valid, Message: res.Message}
	if res.Task != nil {
		view, err := s.svc.DescribeTask(c.Request.Context(), res.Task)
		if err != nil {
			s.fail(c, op, err)
			return
		}
		resp.Task = view
	}
	c.JSON(http.StatusOK, resp)
}

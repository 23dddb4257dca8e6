// Package server exposes the workflow service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// WorkflowService is the part of workflow.Service the HTTP surface uses.
type WorkflowService interface {
	ListTasks(ctx context.Context, ownerUserID *int64) ([]workflow.Task, error)
	GetTask(ctx context.Context, id int64) (*workflow.Task, error)
	CreateTask(ctx context.Context, req workflow.CreateTaskRequest) (*workflow.Task, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)
	AdvanceTask(ctx context.Context, id int64, requirement string) (*workflow.TransitionResult, error)
	ReverseTask(ctx context.Context, id int64) (*workflow.ReverseResult, error)
	CloseTask(ctx context.Context, id int64) (*workflow.TransitionResult, error)
	ListTaskTypes() []workflow.TaskType
	Catalog() *workflow.Catalog
	ListStatusHistory(ctx context.Context, taskID int64) ([]workflow.RequirementRecord, error)
	ListUsers(ctx context.Context) ([]workflow.User, error)
	DescribeTasks(ctx context.Context, tasks []workflow.Task) ([]workflow.TaskView, error)
	DescribeTask(ctx context.Context, t *workflow.Task) (*workflow.TaskView, error)
}

// Options configures the HTTP server.
type Options struct {
	Port           int
	AllowedOrigins []string
	// Mode is the gin mode: debug, release or test.
	Mode string
}

type Server struct {
	svc     WorkflowService
	log     *logrus.Logger
	origins map[string]struct{}
	engine  *gin.Engine
	server  *http.Server
}

func New(svc WorkflowService, log *logrus.Logger, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[o] = struct{}{}
	}

	s := &Server{
		svc:     svc,
		log:     log,
		origins: origins,
	}
	s.engine = s.registerRoutes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

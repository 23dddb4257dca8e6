package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/taskflow/internal/logger"
	"github.com/josephgoksu/taskflow/internal/memory"
	"github.com/josephgoksu/taskflow/internal/policy"
	"github.com/josephgoksu/taskflow/internal/workflow"
)

type testEnv struct {
	handler http.Handler
	users   []workflow.User
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, quietLogger())
}

// newTestEnvWithLogger routes both request and transition logs to log.
func newTestEnvWithLogger(t *testing.T, log *logrus.Logger) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := memory.NewSQLiteStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	users := []workflow.User{{Name: "Ann"}, {Name: "Ben"}}
	for i := range users {
		require.NoError(t, store.CreateUser(ctx, &users[i]))
	}

	catalog, err := workflow.DefaultCatalog()
	require.NoError(t, err)
	engine, err := policy.NewEngine(ctx, policy.EngineConfig{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)

	svc := workflow.NewService(catalog, store,
		workflow.WithValidator(engine),
		workflow.WithEventSink(logger.NewTransitionSink(log)),
	)
	srv := New(svc, log, Options{
		Port:           0,
		AllowedOrigins: []string{"http://localhost:4200"},
		Mode:           "test",
	})
	return &testEnv{handler: srv.Handler(), users: users}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createTask(t *testing.T, typeID int) workflow.TaskView {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"typeId":             typeID,
		"userId":             e.users[0].ID,
		"nextAssignedUserId": e.users[1].ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view workflow.TaskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthMessage, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestTransitionLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	env := newTestEnvWithLogger(t, log)
	view := env.createTask(t, 2)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tasks/%d/advance", view.ID),
		bytes.NewBufferString(`{"requirement":"login page"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "req-advance-1")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var transition map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["operation"] == string(workflow.KindAdvance) {
			transition = entry
		}
	}
	require.NotNil(t, transition, buf.String())
	assert.Equal(t, "req-advance-1", transition["request_id"])
	assert.Equal(t, float64(view.ID), transition["task_id"])
}

func TestCreateAndGetTask(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 2)

	assert.Equal(t, "Development", view.TypeName)
	assert.Equal(t, 1, view.Status)
	assert.Equal(t, "Created", view.StatusName)
	assert.Equal(t, "Ann", view.OwnerName)
	assert.Equal(t, "Ben", view.NextAssigneeName)
	assert.Equal(t, "Need specification", view.NextPrompt)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", view.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[workflow.TaskView](t, rec)
	assert.Equal(t, view.ID, got.ID)
}

func TestCreateTask_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantType  string
		wantField string
	}{
		{"malformed json", "{", http.StatusBadRequest, errTypeValidation, ""},
		{"wrong field type", `{"typeId":"one","userId":1}`, http.StatusBadRequest, errTypeValidation, "typeId"},
		{"missing owner", map[string]any{"typeId": 1}, http.StatusBadRequest, errTypeValidation, "userId"},
		{"unknown owner", map[string]any{"typeId": 1, "userId": 999}, http.StatusBadRequest, errTypeValidation, "userId"},
		{"unknown type", map[string]any{"typeId": 42, "userId": env.users[0].ID}, http.StatusNotFound, errTypeNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/tasks", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			apiErr := decode[apiError](t, rec)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.wantField, apiErr.Field)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestGetTask_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tasks/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tasks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decode[apiError](t, rec).Field)
}

func TestWorkflowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 1)
	base := fmt.Sprintf("/api/tasks/%d", view.ID)

	rec := env.do(t, http.MethodPost, base+"/advance", map[string]any{"requirement": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[TransitionResponse](t, rec)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Task.Status)

	// Rejections are reported with 200 and valid=false.
	rec = env.do(t, http.MethodPost, base+"/advance", map[string]any{"taskId": view.ID, "requirement": "100"})
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[TransitionResponse](t, rec)
	assert.False(t, res.Valid)
	assert.Equal(t, "Please provide at least 2 price quotes separated by commas", res.Message)
	assert.Equal(t, 2, res.Task.Status)

	rec = env.do(t, http.MethodPost, base+"/advance", map[string]any{"requirement": "100, 120"})
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[TransitionResponse](t, rec)
	assert.True(t, res.Valid)
	assert.Equal(t, "Purchase completed", res.Task.StatusName)

	rec = env.do(t, http.MethodPost, base+"/reverse", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rev := decode[ReverseResponse](t, rec)
	assert.True(t, rev.Valid)
	require.NotNil(t, rev.SavedRequirement)
	assert.Equal(t, "100, 120", *rev.SavedRequirement)
	assert.Equal(t, []RequirementPayload{{StatusID: 2, RequirementValue: "100, 120"}}, rev.Requirements)

	rec = env.do(t, http.MethodPost, base+"/close", nil)
	res = decode[TransitionResponse](t, rec)
	assert.False(t, res.Valid)
	assert.Equal(t, "Task can only be closed from final status", res.Message)

	rec = env.do(t, http.MethodPost, base+"/advance", map[string]any{"requirement": "100, 120"})
	require.True(t, decode[TransitionResponse](t, rec).Valid)

	rec = env.do(t, http.MethodPost, base+"/close", nil)
	res = decode[TransitionResponse](t, rec)
	assert.True(t, res.Valid)
	assert.True(t, res.Task.Closed)

	rec = env.do(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]HistoryEntry](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "Created", history[0].StatusName)
	assert.Equal(t, "Supplier offers received", history[1].StatusName)
	assert.Equal(t, "100, 120", history[1].Value)
}

func TestAdvance_IDMismatch(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 1)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%d/advance", view.ID), map[string]any{
		"taskId":      view.ID + 1,
		"requirement": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ID mismatch", decode[apiError](t, rec).Message)
}

func TestAdvance_TooLong(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 1)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%d/advance", view.ID), map[string]any{
		"requirement": string(bytes.Repeat([]byte("x"), workflow.DefaultMaxRequirementLength+1)),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "requirement", decode[apiError](t, rec).Field)
}

func TestReverse_AtInitialStatus(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 1)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%d/reverse", view.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rev := decode[ReverseResponse](t, rec)
	assert.False(t, rev.Valid)
	assert.Equal(t, "Cannot reverse below status 1", rev.Message)
	assert.Empty(t, rev.Requirements)
	assert.Nil(t, rev.SavedRequirement)
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	view := env.createTask(t, 1)
	path := fmt.Sprintf("/api/tasks/%d", view.ID)

	rec := env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTasks_OwnerFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createTask(t, 1)
	env.createTask(t, 2)

	rec := env.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]workflow.TaskView](t, rec)
	require.Len(t, all, 2)
	assert.Greater(t, all[0].ID, all[1].ID)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/tasks?userId=%d", env.users[1].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]workflow.TaskView](t, rec))

	rec = env.do(t, http.MethodGet, "/api/tasks?userId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTypesAndUsers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tasks/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]workflow.TaskType](t, rec)
	require.Len(t, types, 2)
	assert.Equal(t, "Procurement", types[0].Name)
	assert.Len(t, types[1].Statuses, 4)

	rec = env.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]workflow.User](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, "Ann", users[0].Name)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type failingService struct {
	WorkflowService
}

func (failingService) ListUsers(context.Context) ([]workflow.User, error) {
	return nil, errors.New("disk on fire")
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	srv := New(failingService{}, quietLogger(), Options{Mode: "test"})
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decode[apiError](t, rec)
	assert.Equal(t, internalError, apiErr)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestWriteError_BusinessError(t *testing.T) {
	srv := New(failingService{}, quietLogger(), Options{Mode: "test"})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	srv.writeError(c, "test", &workflow.BusinessError{Message: "no other users"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decode[apiError](t, rec)
	assert.Equal(t, errTypeBusiness, apiErr.Type)
	assert.Equal(t, "no other users", apiErr.Message)
}

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

func taskRequest(t *testing.T, method, suffix string, body any, taskID uuid.UUID) *http.Request {
	t.Helper()
	req := newRequest(t, method, "/api/tasks/"+taskID.String()+suffix, body, uuid.New())
	req.SetPathValue("tid", taskID.String())
	return req
}

func TestTasksHandler_Create(t *testing.T) {
	tasks := &mockTaskService{task: &models.Task{ID: uuid.New(), Title: "Ship", Status: models.TaskStatusTodo}}
	h := NewTasksHandler(tasks, testAuditor(), zap.NewNop())
	projectID := uuid.New()

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/api/tasks",
		services.TaskInput{ProjectID: projectID, Title: "Ship"}, uuid.New()))

	expectStatus(t, rec, http.StatusCreated)
	if tasks.lastInput.ProjectID != projectID || tasks.lastInput.Title != "Ship" {
		t.Errorf("unexpected input passed to service: %+v", tasks.lastInput)
	}
}

func TestTasksHandler_CreateValidationError(t *testing.T) {
	tasks := &mockTaskService{err: fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)}
	h := NewTasksHandler(tasks, testAuditor(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/api/tasks", services.TaskInput{}, uuid.New()))

	expectStatus(t, rec, http.StatusBadRequest)
	if code := decodeError(t, rec); code != "invalid_input" {
		t.Errorf("expected invalid_input, got %q", code)
	}
}

func TestTasksHandler_UpdateStatus(t *testing.T) {
	tasks := &mockTaskService{task: &models.Task{Status: models.TaskStatusDone}}
	h := NewTasksHandler(tasks, testAuditor(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, taskRequest(t, http.MethodPut, "/status", StatusRequest{Status: models.TaskStatusDone}, uuid.New()))

	expectStatus(t, rec, http.StatusOK)
	if tasks.lastStatus != models.TaskStatusDone {
		t.Errorf("expected done, got %q", tasks.lastStatus)
	}
}

func TestTasksHandler_MutationByNonAssigneeIsForbidden(t *testing.T) {
	tasks := &mockTaskService{err: fmt.Errorf("%w: only the assignee can change this task", apperrors.ErrForbidden)}
	h := NewTasksHandler(tasks, testAuditor(), zap.NewNop())
	id := uuid.New()

	rec := httptest.NewRecorder()
	h.Update(rec, taskRequest(t, http.MethodPut, "", services.TaskInput{Title: "x"}, id))
	expectStatus(t, rec, http.StatusForbidden)

	rec = httptest.NewRecorder()
	h.Delete(rec, taskRequest(t, http.MethodDelete, "", nil, id))
	expectStatus(t, rec, http.StatusForbidden)
}

func TestTasksHandler_Assign(t *testing.T) {
	tasks := &mockTaskService{task: &models.Task{}}
	h := NewTasksHandler(tasks, testAuditor(), zap.NewNop())
	assignee := uuid.New()

	rec := httptest.NewRecorder()
	h.Assign(rec, taskRequest(t, http.MethodPut, "/assignee", AssignRequest{UserID: assignee}, uuid.New()))
	expectStatus(t, rec, http.StatusOK)
	if tasks.assignedTo != assignee {
		t.Errorf("expected assignee %s, got %s", assignee, tasks.assignedTo)
	}

	rec = httptest.NewRecorder()
	h.Assign(rec, taskRequest(t, http.MethodPut, "/assignee", AssignRequest{}, uuid.New()))
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestTasksHandler_GetNotFound(t *testing.T) {
	h := NewTasksHandler(&mockTaskService{err: errNotFound("task")}, testAuditor(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Get(rec, taskRequest(t, http.MethodGet, "", nil, uuid.New()))

	expectStatus(t, rec, http.StatusNotFound)
}

func TestTasksHandler_Statuses(t *testing.T) {
	h := NewTasksHandler(&mockTaskService{}, testAuditor(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Statuses(rec, newRequest(t, http.MethodGet, "/api/task-statuses", nil, uuid.New()))

	expectStatus(t, rec, http.StatusOK)
	var got []TaskStatusOption
	decodeData(t, rec, &got)
	if len(got) != 3 || got[1].Value != models.TaskStatusInProgress || got[1].Label != "In Progress" {
		t.Errorf("unexpected statuses: %+v", got)
	}
}

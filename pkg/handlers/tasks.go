package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// StatusRequest is the body of PUT /api/tasks/{tid}/status.
type StatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

// AssignRequest is the body of PUT /api/tasks/{tid}/assignee.
type AssignRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// TaskStatusOption is one selectable task status.
type TaskStatusOption struct {
	Value models.TaskStatus `json:"value"`
	Label string            `json:"label"`
}

// TasksHandler handles task CRUD, status changes and assignment.
type TasksHandler struct {
	tasks  services.TaskService
	errs   serviceErrorWriter
	logger *zap.Logger
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(tasks services.TaskService, auditor *audit.SecurityAuditor, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{
		tasks:  tasks,
		errs:   serviceErrorWriter{auditor: auditor, logger: logger},
		logger: logger,
	}
}

// RegisterRoutes registers the tasks handler's routes on the given mux.
func (h *TasksHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	user := func(next http.HandlerFunc) http.HandlerFunc { return authMiddleware.RequireAuth(scope(next)) }

	mux.HandleFunc("GET /api/task-statuses", authMiddleware.RequireAuth(h.Statuses))
	mux.HandleFunc("POST /api/tasks", user(h.Create))
	mux.HandleFunc("GET /api/tasks/{tid}", user(h.Get))
	mux.HandleFunc("PUT /api/tasks/{tid}", user(h.Update))
	mux.HandleFunc("DELETE /api/tasks/{tid}", user(h.Delete))
	mux.HandleFunc("PUT /api/tasks/{tid}/status", user(h.UpdateStatus))
	mux.HandleFunc("GET /api/tasks/{tid}/assignees", user(h.PossibleAssignees))
	mux.HandleFunc("PUT /api/tasks/{tid}/assignee", user(h.Assign))
}

// Statuses handles GET /api/task-statuses.
func (h *TasksHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses := []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone}
	options := make([]TaskStatusOption, 0, len(statuses))
	for _, s := range statuses {
		options = append(options, TaskStatusOption{Value: s, Label: s.Label()})
	}
	respond(w, http.StatusOK, options, h.logger)
}

// Create handles POST /api/tasks.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	var input services.TaskInput
	if !decodeBody(w, r, &input, h.logger) {
		return
	}

	task, err := h.tasks.Create(r.Context(), callerID, input)
	if err != nil {
		h.errs.write(w, r, err, "create task")
		return
	}
	respond(w, http.StatusCreated, task, h.logger)
}

// Get handles GET /api/tasks/{tid}.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), taskID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "get task")
		return
	}
	respond(w, http.StatusOK, task, h.logger)
}

// Update handles PUT /api/tasks/{tid}.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}
	var input services.TaskInput
	if !decodeBody(w, r, &input, h.logger) {
		return
	}

	task, err := h.tasks.Update(r.Context(), taskID, callerID, input)
	if err != nil {
		h.errs.write(w, r, err, "update task")
		return
	}
	respond(w, http.StatusOK, task, h.logger)
}

// Delete handles DELETE /api/tasks/{tid}.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID, callerID); err != nil {
		h.errs.write(w, r, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PUT /api/tasks/{tid}/status.
func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), taskID, callerID, req.Status)
	if err != nil {
		h.errs.write(w, r, err, "update task status")
		return
	}
	respond(w, http.StatusOK, task, h.logger)
}

// PossibleAssignees handles GET /api/tasks/{tid}/assignees.
func (h *TasksHandler) PossibleAssignees(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}

	users, err := h.tasks.PossibleAssignees(r.Context(), taskID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "list assignees")
		return
	}
	respond(w, http.StatusOK, users, h.logger)
}

// Assign handles PUT /api/tasks/{tid}/assignee.
func (h *TasksHandler) Assign(w http.ResponseWriter, r *http.Request) {
	callerID, taskID, ok := h.callerAndTask(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == uuid.Nil {
		fail(w, http.StatusBadRequest, "invalid_input", "user_id is required", h.logger)
		return
	}

	task, err := h.tasks.Assign(r.Context(), taskID, callerID, req.UserID)
	if err != nil {
		h.errs.write(w, r, err, "assign task")
		return
	}
	respond(w, http.StatusOK, task, h.logger)
}

func (h *TasksHandler) callerAndTask(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return callerID, taskID, true
}

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

// ProjectRequest is the body for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ShareRequest grants visibility of a project to another user.
type ShareRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// ProjectsHandler handles project CRUD, sharing and the project task list.
type ProjectsHandler struct {
	projects services.ProjectService
	tasks    services.TaskService
	errs     serviceErrorWriter
	logger   *zap.Logger
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(
	projects services.ProjectService,
	tasks services.TaskService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
		tasks:    tasks,
		errs:     serviceErrorWriter{auditor: auditor, logger: logger},
		logger:   logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	user := func(next http.HandlerFunc) http.HandlerFunc { return authMiddleware.RequireAuth(scope(next)) }
	admin := authMiddleware.RequireRole(models.RoleAdmin)

	mux.HandleFunc("GET /api/projects", admin(scope(h.ListAll)))
	mux.HandleFunc("GET /api/projects/visible", user(h.ListVisible))
	mux.HandleFunc("GET /api/projects/owned", user(h.ListOwned))
	mux.HandleFunc("POST /api/projects", user(h.Create))
	mux.HandleFunc("GET /api/projects/{pid}", user(h.Get))
	mux.HandleFunc("PUT /api/projects/{pid}", user(h.Update))
	mux.HandleFunc("DELETE /api/projects/{pid}", user(h.Delete))
	mux.HandleFunc("POST /api/projects/{pid}/share", user(h.Share))
	mux.HandleFunc("GET /api/projects/{pid}/viewers", user(h.Viewers))
	mux.HandleFunc("GET /api/projects/{pid}/tasks", user(h.Tasks))
}

// ListAll handles GET /api/projects (admin only).
func (h *ProjectsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListAll(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "list projects")
		return
	}
	respond(w, http.StatusOK, projects, h.logger)
}

// ListVisible handles GET /api/projects/visible.
func (h *ProjectsHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projects, err := h.projects.ListVisible(r.Context(), callerID)
	if err != nil {
		h.errs.write(w, r, err, "list projects")
		return
	}
	respond(w, http.StatusOK, projects, h.logger)
}

// ListOwned handles GET /api/projects/owned.
func (h *ProjectsHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projects, err := h.projects.ListOwned(r.Context(), callerID)
	if err != nil {
		h.errs.write(w, r, err, "list projects")
		return
	}
	respond(w, http.StatusOK, projects, h.logger)
}

// Create handles POST /api/projects. The caller becomes the owner.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	var req ProjectRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	project, err := h.projects.Create(r.Context(), callerID, req.Name, req.Description)
	if err != nil {
		h.errs.write(w, r, err, "create project")
		return
	}
	respond(w, http.StatusCreated, project, h.logger)
}

// Get handles GET /api/projects/{pid}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), projectID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "get project")
		return
	}
	respond(w, http.StatusOK, project, h.logger)
}

// Update handles PUT /api/projects/{pid}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	var req ProjectRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	project, err := h.projects.Update(r.Context(), projectID, callerID, req.Name, req.Description)
	if err != nil {
		h.errs.write(w, r, err, "update project")
		return
	}
	respond(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /api/projects/{pid}.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), projectID, callerID); err != nil {
		h.errs.write(w, r, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Share handles POST /api/projects/{pid}/share.
func (h *ProjectsHandler) Share(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	var req ShareRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.UserID == uuid.Nil {
		fail(w, http.StatusBadRequest, "invalid_input", "user_id is required", h.logger)
		return
	}

	if err := h.projects.Share(r.Context(), projectID, callerID, req.UserID); err != nil {
		h.errs.write(w, r, err, "share project")
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "shared"}, h.logger)
}

// Viewers handles GET /api/projects/{pid}/viewers.
func (h *ProjectsHandler) Viewers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	viewers, err := h.projects.Viewers(r.Context(), projectID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "list viewers")
		return
	}
	respond(w, http.StatusOK, viewers, h.logger)
}

// Tasks handles GET /api/projects/{pid}/tasks.
func (h *ProjectsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListForProject(r.Context(), projectID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "list tasks")
		return
	}
	respond(w, http.StatusOK, tasks, h.logger)
}

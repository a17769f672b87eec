package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// UsersHandler handles the user directory, self-service profile changes and
// admin account removal.
type UsersHandler struct {
	users   services.UserService
	auditor *audit.SecurityAuditor
	errs    serviceErrorWriter
	logger  *zap.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(users services.UserService, auditor *audit.SecurityAuditor, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		users:   users,
		auditor: auditor,
		errs:    serviceErrorWriter{auditor: auditor, logger: logger},
		logger:  logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	user := func(next http.HandlerFunc) http.HandlerFunc { return authMiddleware.RequireAuth(scope(next)) }
	admin := authMiddleware.RequireRole(models.RoleAdmin)

	mux.HandleFunc("GET /api/users", user(h.List))
	mux.HandleFunc("GET /api/users/{uid}", user(h.Get))
	mux.HandleFunc("PUT /api/users/{uid}", user(h.Update))
	mux.HandleFunc("DELETE /api/users/{uid}", user(h.Delete))
	mux.HandleFunc("DELETE /api/admin/users/{uid}", admin(scope(h.AdminDelete)))
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "list users")
		return
	}
	respond(w, http.StatusOK, users, h.logger)
}

// Get handles GET /api/users/{uid}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err, "get user")
		return
	}
	respond(w, http.StatusOK, user, h.logger)
}

// Update handles PUT /api/users/{uid}. Only the account holder may update it.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	var update services.UserUpdate
	if !decodeBody(w, r, &update, h.logger) {
		return
	}

	user, err := h.users.Update(r.Context(), userID, callerID, update)
	if err != nil {
		h.errs.write(w, r, err, "update user")
		return
	}
	respond(w, http.StatusOK, user, h.logger)
}

// Delete handles DELETE /api/users/{uid}. Only the account holder may delete it.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID, callerID); err != nil {
		h.errs.write(w, r, err, "delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminDelete handles DELETE /api/admin/users/{uid}.
func (h *UsersHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.users.DeleteAsAdmin(r.Context(), userID); err != nil {
		h.errs.write(w, r, err, "delete user")
		return
	}
	if h.auditor != nil {
		h.auditor.LogAdminAction(r.Context(), "delete_user", userID.String(), audit.ClientIP(r))
	}
	w.WriteHeader(http.StatusNoContent)
}

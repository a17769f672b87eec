package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// NotifyRequest is the body of POST /api/notifications.
type NotifyRequest struct {
	ProjectID uuid.UUID  `json:"project_id"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	Message   string     `json:"message"`
}

// NotificationsHandler handles the caller's notification inbox.
type NotificationsHandler struct {
	notifications services.NotificationService
	errs          serviceErrorWriter
	logger        *zap.Logger
}

// NewNotificationsHandler creates a new NotificationsHandler.
func NewNotificationsHandler(notifications services.NotificationService, auditor *audit.SecurityAuditor, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		notifications: notifications,
		errs:          serviceErrorWriter{auditor: auditor, logger: logger},
		logger:        logger,
	}
}

// RegisterRoutes registers the notifications handler's routes on the given mux.
func (h *NotificationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	user := func(next http.HandlerFunc) http.HandlerFunc { return authMiddleware.RequireAuth(scope(next)) }

	mux.HandleFunc("GET /api/notifications", user(h.List))
	mux.HandleFunc("POST /api/notifications", user(h.Notify))
	mux.HandleFunc("PUT /api/notifications/{nid}/read", user(h.MarkRead))
	mux.HandleFunc("PUT /api/notifications/{nid}/unread", user(h.MarkUnread))
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}

	notifications, err := h.notifications.ListForUser(r.Context(), callerID)
	if err != nil {
		h.errs.write(w, r, err, "list notifications")
		return
	}
	respond(w, http.StatusOK, notifications, h.logger)
}

// Notify handles POST /api/notifications. The caller must see the project.
func (h *NotificationsHandler) Notify(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	var req NotifyRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	created, err := h.notifications.NotifyAsViewer(r.Context(), callerID, req.ProjectID, req.TaskID, req.Message)
	if err != nil {
		h.errs.write(w, r, err, "send notification")
		return
	}
	respond(w, http.StatusCreated, created, h.logger)
}

// MarkRead handles PUT /api/notifications/{nid}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.setRead(w, r, true)
}

// MarkUnread handles PUT /api/notifications/{nid}/unread.
func (h *NotificationsHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.setRead(w, r, false)
}

func (h *NotificationsHandler) setRead(w http.ResponseWriter, r *http.Request, read bool) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	notificationID, ok := ParseNotificationID(w, r, h.logger)
	if !ok {
		return
	}

	var err error
	if read {
		err = h.notifications.MarkRead(r.Context(), notificationID, callerID)
	} else {
		err = h.notifications.MarkUnread(r.Context(), notificationID, callerID)
	}
	if err != nil {
		h.errs.write(w, r, err, "update notification")
		return
	}
	respond(w, http.StatusOK, map[string]bool{"is_read": read}, h.logger)
}

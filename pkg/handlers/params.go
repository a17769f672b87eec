package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/auth"
)

// ParseProjectID extracts and validates the project ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseTaskID extracts and validates the task ID from the request path.
// Expects path parameter: tid
func ParseTaskID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_task_id", "Invalid task ID format", logger)
}

// ParseCommentID extracts and validates the comment ID from the request path.
// Expects path parameter: cid
func ParseCommentID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "cid", "invalid_comment_id", "Invalid comment ID format", logger)
}

// ParseNotificationID extracts and validates the notification ID from the request path.
// Expects path parameter: nid
func ParseNotificationID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "nid", "invalid_notification_id", "Invalid notification ID format", logger)
}

// ParseUserID extracts and validates the user ID from the request path.
// Expects path parameter: uid
func ParseUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "uid", "invalid_user_id", "Invalid user ID format", logger)
}

// CallerID returns the authenticated user's ID. It writes a 401 and returns
// false when the request carries no valid subject.
func CallerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, ok := auth.GetUserUUIDFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "unauthorized", "Authentication required", logger)
		return uuid.Nil, false
	}
	return id, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(pathParam))
	if err != nil {
		fail(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// CommentRequest is the body for creating or editing a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentsHandler handles task comments.
type CommentsHandler struct {
	comments services.CommentService
	errs     serviceErrorWriter
	logger   *zap.Logger
}

// NewCommentsHandler creates a new CommentsHandler.
func NewCommentsHandler(comments services.CommentService, auditor *audit.SecurityAuditor, logger *zap.Logger) *CommentsHandler {
	return &CommentsHandler{
		comments: comments,
		errs:     serviceErrorWriter{auditor: auditor, logger: logger},
		logger:   logger,
	}
}

// RegisterRoutes registers the comments handler's routes on the given mux.
func (h *CommentsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	user := func(next http.HandlerFunc) http.HandlerFunc { return authMiddleware.RequireAuth(scope(next)) }

	mux.HandleFunc("GET /api/tasks/{tid}/comments", user(h.List))
	mux.HandleFunc("POST /api/tasks/{tid}/comments", user(h.Create))
	mux.HandleFunc("GET /api/comments/{cid}", user(h.Get))
	mux.HandleFunc("PUT /api/comments/{cid}", user(h.Update))
	mux.HandleFunc("DELETE /api/comments/{cid}", user(h.Delete))
}

// List handles GET /api/tasks/{tid}/comments.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	comments, err := h.comments.ListForTask(r.Context(), taskID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "list comments")
		return
	}
	respond(w, http.StatusOK, comments, h.logger)
}

// Create handles POST /api/tasks/{tid}/comments.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	comment, err := h.comments.Create(r.Context(), taskID, callerID, req.Text)
	if err != nil {
		h.errs.write(w, r, err, "create comment")
		return
	}
	respond(w, http.StatusCreated, comment, h.logger)
}

// Get handles GET /api/comments/{cid}.
func (h *CommentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	commentID, ok := ParseCommentID(w, r, h.logger)
	if !ok {
		return
	}

	comment, err := h.comments.Get(r.Context(), commentID, callerID)
	if err != nil {
		h.errs.write(w, r, err, "get comment")
		return
	}
	respond(w, http.StatusOK, comment, h.logger)
}

// Update handles PUT /api/comments/{cid}.
func (h *CommentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	commentID, ok := ParseCommentID(w, r, h.logger)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	comment, err := h.comments.Update(r.Context(), commentID, callerID, req.Text)
	if err != nil {
		h.errs.write(w, r, err, "update comment")
		return
	}
	respond(w, http.StatusOK, comment, h.logger)
}

// Delete handles DELETE /api/comments/{cid}.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}
	commentID, ok := ParseCommentID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.comments.Delete(r.Context(), commentID, callerID); err != nil {
		h.errs.write(w, r, err, "delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthHandler handles account registration and session lifecycle.
type AuthHandler struct {
	accounts services.AuthService
	users    services.UserService
	sessions auth.AuthService
	auditor  *audit.SecurityAuditor
	errs     serviceErrorWriter
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	accounts services.AuthService,
	users services.UserService,
	sessions auth.AuthService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		users:    users,
		sessions: sessions,
		auditor:  auditor,
		errs:     serviceErrorWriter{auditor: auditor, logger: logger},
		logger:   logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/auth/register", scope(h.Register))
	mux.HandleFunc("POST /api/auth/login", scope(h.Login))
	mux.HandleFunc("POST /api/auth/logout", authMiddleware.RequireAuth(h.Logout))
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(scope(h.Me)))
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.errs.write(w, r, err, "register")
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	respond(w, http.StatusCreated, user, h.logger)
}

// Login handles POST /api/auth/login. The token is returned in the body and
// also stored in the session cookie for browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) && h.auditor != nil {
			h.auditor.LogLoginFailed(r.Context(), req.Username, audit.ClientIP(r))
		}
		h.errs.write(w, r, err, "log in")
		return
	}

	if err := h.sessions.StartSession(w, r, result.Token); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		fail(w, http.StatusInternalServerError, "internal_error", "Failed to log in", h.logger)
		return
	}

	respond(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	}, h.logger)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaims(r.Context())
	if err := h.sessions.EndSession(w, r, claims); err != nil {
		h.logger.Error("Failed to end session", zap.Error(err))
		fail(w, http.StatusInternalServerError, "internal_error", "Failed to log out", h.logger)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "logged_out"}, h.logger)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), callerID)
	if err != nil {
		h.errs.write(w, r, err, "load current user")
		return
	}
	respond(w, http.StatusOK, user, h.logger)
}

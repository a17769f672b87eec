package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// DenialRecorder receives authentication and role failures for auditing.
type DenialRecorder interface {
	RecordAuthFailure(r *http.Request, reason string)
	RecordAccessDenied(r *http.Request, reason string)
}

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	recorder    DenialRecorder
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
// recorder may be nil.
func NewMiddleware(authService AuthService, recorder DenialRecorder, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		recorder:    recorder,
		logger:      logger,
	}
}

// RequireAuth validates the JWT and sets claims and token in context for
// downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims, token)))
	}
}

// RequireRole validates the JWT and requires the given global role.
func (m *Middleware) RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.reject(w, r, err)
				return
			}

			if !claims.HasRole(role) {
				m.logger.Warn("Role required",
					zap.String("subject", claims.Subject),
					zap.String("role", role),
					zap.String("path", r.URL.Path))
				ctx := WithClaims(r.Context(), claims, token)
				if m.recorder != nil {
					m.recorder.RecordAccessDenied(r.WithContext(ctx), "missing role "+role)
				}
				m.forbidden(w, "This endpoint requires the "+role+" role")
				return
			}

			next(w, r.WithContext(WithClaims(r.Context(), claims, token)))
		}
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := "invalid token"
	switch {
	case errors.Is(err, ErrMissingAuthorization):
		// Anonymous requests are not audited.
		m.unauthorized(w, "Authentication required")
		return
	case errors.Is(err, ErrTokenRevoked):
		reason = "revoked token"
	case !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrInvalidAuthFormat):
		m.logger.Warn("Token revocation check failed", zap.Error(err))
		reason = "revocation check failed"
	}
	if m.recorder != nil {
		m.recorder.RecordAuthFailure(r, reason)
	}
	m.unauthorized(w, "Authentication required")
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusForbidden, "forbidden", message)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// TokenVerifier validates a raw token string.
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// AuthService defines the interface for request authentication.
type AuthService interface {
	// ValidateRequest extracts and validates a JWT from the request.
	// It checks for the token in:
	//   1. The taskflow-session cookie (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	// Revoked tokens are rejected with ErrTokenRevoked.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// StartSession stores token in the browser session cookie.
	StartSession(w http.ResponseWriter, r *http.Request, token string) error

	// EndSession clears the session cookie and revokes the token identified by claims.
	EndSession(w http.ResponseWriter, r *http.Request, claims *Claims) error
}

// authService implements AuthService.
type authService struct {
	verifier TokenVerifier
	sessions *SessionStore
	revoker  Revoker
	logger   *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(verifier TokenVerifier, sessions *SessionStore, revoker Revoker, logger *zap.Logger) AuthService {
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	return &authService{
		verifier: verifier,
		sessions: sessions,
		revoker:  revoker,
		logger:   logger,
	}
}

// ValidateRequest extracts and validates a JWT from the request.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	var tokenString string
	var tokenSource string

	// Try session cookie first (browser clients)
	if token := s.sessions.Token(r); token != "" {
		tokenString = token
		tokenSource = "session"
	} else {
		// Fallback to Authorization header (API clients)
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.logger.Debug("No JWT found in request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))
			return nil, "", ErrMissingAuthorization
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return nil, "", ErrInvalidAuthFormat
		}
		tokenString = parts[1]
		tokenSource = "header"
	}

	claims, err := s.verifier.Verify(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return nil, "", err
	}

	if claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, "", err
		}
		if revoked {
			return nil, "", ErrTokenRevoked
		}
	}

	return claims, tokenString, nil
}

func (s *authService) StartSession(w http.ResponseWriter, r *http.Request, token string) error {
	return s.sessions.SaveToken(w, r, token)
}

func (s *authService) EndSession(w http.ResponseWriter, r *http.Request, claims *Claims) error {
	if err := s.sessions.Clear(w, r); err != nil {
		return err
	}
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)

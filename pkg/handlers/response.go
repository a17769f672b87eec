// Package handlers exposes the taskflow services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/logging"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ScopeMiddleware wraps a handler with a per-request database scope.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ApiResponse is the envelope for successful responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// respond writes data inside a success envelope.
func respond(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// fail writes an error response and logs if writing it failed.
func fail(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeBody decodes a JSON request body into v. On failure it writes a 400
// and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}

// serviceErrorWriter maps service errors onto HTTP responses.
type serviceErrorWriter struct {
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// write maps err to a status code. Forbidden errors are audited; unexpected
// errors are logged sanitized and reported as a generic 500 with action in
// the message.
func (e serviceErrorWriter) write(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		fail(w, http.StatusNotFound, "not_found", err.Error(), e.logger)
	case errors.Is(err, apperrors.ErrForbidden):
		if e.auditor != nil {
			e.auditor.LogAccessDenied(r.Context(), r.URL.Path, err.Error(), audit.ClientIP(r))
		}
		fail(w, http.StatusForbidden, "forbidden", err.Error(), e.logger)
	case errors.Is(err, apperrors.ErrInvalidInput):
		fail(w, http.StatusBadRequest, "invalid_input", err.Error(), e.logger)
	case errors.Is(err, apperrors.ErrConflict):
		fail(w, http.StatusConflict, "conflict", err.Error(), e.logger)
	case errors.Is(err, apperrors.ErrUnauthorized):
		fail(w, http.StatusUnauthorized, "unauthorized", err.Error(), e.logger)
	default:
		e.logger.Error("Request failed",
			zap.String("action", action),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", logging.SanitizeError(err)))
		fail(w, http.StatusInternalServerError, "internal_error", "Failed to "+action, e.logger)
	}
}

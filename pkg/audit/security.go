// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskflow-app/taskflow/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventLoginFailed is logged when a login presents bad credentials.
	EventLoginFailed SecurityEventType = "login_failed"
	// EventAuthFailure is logged when a request carries an invalid or revoked token.
	EventAuthFailure SecurityEventType = "auth_failure"
	// EventAccessDenied is logged when an authenticated user is refused an operation.
	EventAccessDenied SecurityEventType = "access_denied"
	// EventAdminAction is logged for operations performed through admin-only routes.
	EventAdminAction SecurityEventType = "admin_action"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Path      string            `json:"path,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated
// "security_audit" logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *SecurityAuditor) log(level zapcore.Level, msg string, event SecurityEvent, fields ...zap.Field) {
	event.Timestamp = time.Now().UTC()
	eventJSON, _ := json.Marshal(event)

	fields = append([]zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	}, fields...)

	if ce := a.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// LogLoginFailed records a rejected login. The password is never logged.
//
//	auditor.LogLoginFailed(ctx, "alice", audit.ClientIP(r))
func (a *SecurityAuditor) LogLoginFailed(ctx context.Context, username, clientIP string) {
	a.log(zapcore.WarnLevel, "Login failed", SecurityEvent{
		EventType: EventLoginFailed,
		ClientIP:  clientIP,
		Details:   map[string]string{"username": username},
		Severity:  "warning",
	}, zap.String("username", username))
}

// LogAccessDenied records an authorization refusal for the authenticated user in ctx.
func (a *SecurityAuditor) LogAccessDenied(ctx context.Context, path, reason, clientIP string) {
	a.log(zapcore.WarnLevel, "Access denied", SecurityEvent{
		EventType: EventAccessDenied,
		UserID:    auth.GetUserIDFromContext(ctx),
		ClientIP:  clientIP,
		Path:      path,
		Details:   map[string]string{"reason": reason},
		Severity:  "warning",
	}, zap.String("path", path), zap.String("reason", reason))
}

// LogAdminAction records an operation performed through an admin route.
//
//	auditor.LogAdminAction(ctx, "delete_user", userID.String(), audit.ClientIP(r))
func (a *SecurityAuditor) LogAdminAction(ctx context.Context, action, targetID, clientIP string) {
	a.log(zapcore.InfoLevel, "Admin action", SecurityEvent{
		EventType: EventAdminAction,
		UserID:    auth.GetUserIDFromContext(ctx),
		ClientIP:  clientIP,
		Details:   map[string]string{"action": action, "target_id": targetID},
		Severity:  "info",
	}, zap.String("action", action), zap.String("target_id", targetID))
}

// RecordAuthFailure implements auth.DenialRecorder.
func (a *SecurityAuditor) RecordAuthFailure(r *http.Request, reason string) {
	a.log(zapcore.WarnLevel, "Authentication failed", SecurityEvent{
		EventType: EventAuthFailure,
		ClientIP:  ClientIP(r),
		Path:      r.URL.Path,
		Details:   map[string]string{"reason": reason},
		Severity:  "warning",
	}, zap.String("path", r.URL.Path), zap.String("reason", reason))
}

// RecordAccessDenied implements auth.DenialRecorder.
func (a *SecurityAuditor) RecordAccessDenied(r *http.Request, reason string) {
	a.LogAccessDenied(r.Context(), r.URL.Path, reason, ClientIP(r))
}

var _ auth.DenialRecorder = (*SecurityAuditor)(nil)

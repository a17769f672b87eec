package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
)

func errNotFound(what string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
}

func testAuditor() *audit.SecurityAuditor {
	return audit.NewSecurityAuditor(zap.NewNop())
}

// newRequest builds a request with an optional JSON body. A non-nil callerID
// is placed in the context the way RequireAuth does.
func newRequest(t *testing.T, method, target string, body any, callerID uuid.UUID) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if callerID != uuid.Nil {
		claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: callerID.String()}}
		req = req.WithContext(auth.WithClaims(req.Context(), claims, "test-token"))
	}
	return req
}

// decodeData unwraps the success envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %q", rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

// decodeError returns the error code from an error response.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, rec.Body.String())
	}
	return body["error"]
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (body %q)", want, rec.Code, rec.Body.String())
	}
}

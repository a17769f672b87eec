package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

func TestAuthHandler_Register(t *testing.T) {
	var gotUsername string
	accounts := &mockAccounts{
		registerFn: func(ctx context.Context, username, email, password string) (*models.User, error) {
			gotUsername = username
			return &models.User{ID: uuid.New(), Username: username, Email: email, Roles: []string{models.RoleUser}}, nil
		},
	}
	h := NewAuthHandler(accounts, &mockUserService{}, &mockSessions{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/api/auth/register",
		RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}, uuid.Nil))

	expectStatus(t, rec, http.StatusCreated)
	var user models.User
	decodeData(t, rec, &user)
	if user.Username != "alice" || gotUsername != "alice" {
		t.Errorf("expected alice, got %q (service saw %q)", user.Username, gotUsername)
	}
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	accounts := &mockAccounts{
		registerFn: func(ctx context.Context, username, email, password string) (*models.User, error) {
			return nil, fmt.Errorf("%w: username already taken", apperrors.ErrConflict)
		},
	}
	h := NewAuthHandler(accounts, &mockUserService{}, &mockSessions{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/api/auth/register",
		RegisterRequest{Username: "alice", Email: "a@example.com", Password: "correct-horse"}, uuid.Nil))

	expectStatus(t, rec, http.StatusConflict)
}

func TestAuthHandler_LoginStartsSession(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	accounts := &mockAccounts{
		loginFn: func(ctx context.Context, username, password string) (*services.LoginResult, error) {
			return &services.LoginResult{Token: "token-for-alice", ExpiresAt: expires, User: user}, nil
		},
	}
	sessions := &mockSessions{}
	h := NewAuthHandler(accounts, &mockUserService{}, sessions, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "alice", Password: "correct-horse"}, uuid.Nil))

	expectStatus(t, rec, http.StatusOK)
	var resp LoginResponse
	decodeData(t, rec, &resp)
	if resp.Token != "token-for-alice" {
		t.Errorf("expected token-for-alice, got %q", resp.Token)
	}
	if !resp.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, resp.ExpiresAt)
	}
	if sessions.started != "token-for-alice" {
		t.Errorf("expected session to hold the token, got %q", sessions.started)
	}
}

func TestAuthHandler_LoginFailureIsAudited(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	accounts := &mockAccounts{
		loginFn: func(ctx context.Context, username, password string) (*services.LoginResult, error) {
			return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)
		},
	}
	sessions := &mockSessions{}
	h := NewAuthHandler(accounts, &mockUserService{}, sessions, audit.NewSecurityAuditor(zap.New(core)), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login",
		LoginRequest{Username: "alice", Password: "wrong"}, uuid.Nil))

	expectStatus(t, rec, http.StatusUnauthorized)
	if sessions.started != "" {
		t.Error("session must not start on failed login")
	}
	entries := logs.FilterMessage("Login failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one login_failed audit entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["username"] != "alice" {
		t.Errorf("expected username in audit entry, got %v", entries[0].ContextMap())
	}
}

func TestAuthHandler_LoginSessionFailure(t *testing.T) {
	accounts := &mockAccounts{
		loginFn: func(ctx context.Context, username, password string) (*services.LoginResult, error) {
			return &services.LoginResult{Token: "t", User: &models.User{}}, nil
		},
	}
	h := NewAuthHandler(accounts, &mockUserService{}, &mockSessions{startErr: fmt.Errorf("cookie too large")}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "a", Password: "b"}, uuid.Nil))

	expectStatus(t, rec, http.StatusInternalServerError)
}

func TestAuthHandler_Logout(t *testing.T) {
	sessions := &mockSessions{}
	h := NewAuthHandler(&mockAccounts{}, &mockUserService{}, sessions, nil, zap.NewNop())

	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ID: "jti-1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), claims, "tok"))
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	expectStatus(t, rec, http.StatusOK)
	if sessions.ended == nil || sessions.ended.ID != "jti-1" {
		t.Errorf("expected session for jti-1 to end, got %+v", sessions.ended)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	id := uuid.New()
	users := &mockUserService{users: map[uuid.UUID]*models.User{id: {ID: id, Username: "alice"}}}
	h := NewAuthHandler(&mockAccounts{}, users, &mockSessions{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Me(rec, newRequest(t, http.MethodGet, "/api/auth/me", nil, id))

	expectStatus(t, rec, http.StatusOK)
	var user models.User
	decodeData(t, rec, &user)
	if user.ID != id {
		t.Errorf("expected %s, got %s", id, user.ID)
	}

	rec = httptest.NewRecorder()
	h.Me(rec, newRequest(t, http.MethodGet, "/api/auth/me", nil, uuid.New()))
	expectStatus(t, rec, http.StatusNotFound)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// mockAccounts implements services.AuthService.
type mockAccounts struct {
	registerFn func(ctx context.Context, username, email, password string) (*models.User, error)
	loginFn    func(ctx context.Context, username, password string) (*services.LoginResult, error)
}

func (m *mockAccounts) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return m.registerFn(ctx, username, email, password)
}

func (m *mockAccounts) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	return m.loginFn(ctx, username, password)
}

// mockSessions implements auth.AuthService.
type mockSessions struct {
	claims   *auth.Claims
	started  string
	ended    *auth.Claims
	startErr error
	endErr   error
}

func (m *mockSessions) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if m.claims == nil {
		return nil, "", auth.ErrMissingAuthorization
	}
	return m.claims, "test-token", nil
}

func (m *mockSessions) StartSession(w http.ResponseWriter, r *http.Request, token string) error {
	m.started = token
	return m.startErr
}

func (m *mockSessions) EndSession(w http.ResponseWriter, r *http.Request, claims *auth.Claims) error {
	m.ended = claims
	return m.endErr
}

// mockUserService implements services.UserService.
type mockUserService struct {
	users         map[uuid.UUID]*models.User
	updateErr     error
	deleteErr     error
	adminDeleted  []uuid.UUID
	lastUpdate    services.UserUpdate
	lastDeleteArg [2]uuid.UUID
}

func (m *mockUserService) List(ctx context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound("user")
}

func (m *mockUserService) Update(ctx context.Context, id, callerID uuid.UUID, update services.UserUpdate) (*models.User, error) {
	m.lastUpdate = update
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.User{ID: id, Username: update.Username, Email: update.Email}, nil
}

func (m *mockUserService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	m.lastDeleteArg = [2]uuid.UUID{id, callerID}
	return m.deleteErr
}

func (m *mockUserService) DeleteAsAdmin(ctx context.Context, id uuid.UUID) error {
	m.adminDeleted = append(m.adminDeleted, id)
	return m.deleteErr
}

func (m *mockUserService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	return nil, nil
}

// mockProjectService implements services.ProjectService.
type mockProjectService struct {
	project   *models.Project
	err       error
	sharedTo  uuid.UUID
	createdBy uuid.UUID
	viewers   []*models.User
	visible   []*models.ProjectSummary
}

func (m *mockProjectService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Project, error) {
	m.createdBy = ownerID
	if m.err != nil {
		return nil, m.err
	}
	return &models.Project{ID: uuid.New(), Name: name, Description: description, OwnerID: ownerID}, nil
}

func (m *mockProjectService) Get(ctx context.Context, projectID, callerID uuid.UUID) (*models.Project, error) {
	return m.project, m.err
}

func (m *mockProjectService) Update(ctx context.Context, projectID, callerID uuid.UUID, name, description string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Project{ID: projectID, Name: name, Description: description, OwnerID: callerID}, nil
}

func (m *mockProjectService) Delete(ctx context.Context, projectID, callerID uuid.UUID) error {
	return m.err
}

func (m *mockProjectService) Share(ctx context.Context, projectID, callerID, targetUserID uuid.UUID) error {
	m.sharedTo = targetUserID
	return m.err
}

func (m *mockProjectService) ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error) {
	return m.visible, m.err
}

func (m *mockProjectService) ListOwned(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) ListAll(ctx context.Context) ([]*models.Project, error) {
	return nil, m.err
}

func (m *mockProjectService) IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	return false, m.err
}

func (m *mockProjectService) Viewers(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.User, error) {
	return m.viewers, m.err
}

// mockTaskService implements services.TaskService.
type mockTaskService struct {
	task       *models.Task
	err        error
	lastInput  services.TaskInput
	lastStatus models.TaskStatus
	assignedTo uuid.UUID
}

func (m *mockTaskService) ListForProject(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*models.Task{m.task}, nil
}

func (m *mockTaskService) Get(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error) {
	return m.task, m.err
}

func (m *mockTaskService) Create(ctx context.Context, callerID uuid.UUID, input services.TaskInput) (*models.Task, error) {
	m.lastInput = input
	return m.task, m.err
}

func (m *mockTaskService) Update(ctx context.Context, taskID, callerID uuid.UUID, input services.TaskInput) (*models.Task, error) {
	m.lastInput = input
	return m.task, m.err
}

func (m *mockTaskService) UpdateStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	m.lastStatus = status
	return m.task, m.err
}

func (m *mockTaskService) Delete(ctx context.Context, taskID, callerID uuid.UUID) error {
	return m.err
}

func (m *mockTaskService) PossibleAssignees(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.User, error) {
	return nil, m.err
}

func (m *mockTaskService) Assign(ctx context.Context, taskID, callerID, userID uuid.UUID) (*models.Task, error) {
	m.assignedTo = userID
	return m.task, m.err
}

// mockCommentService implements services.CommentService.
type mockCommentService struct {
	comment  *models.Comment
	err      error
	lastText string
}

func (m *mockCommentService) ListForTask(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*models.Comment{m.comment}, nil
}

func (m *mockCommentService) Get(ctx context.Context, commentID, callerID uuid.UUID) (*models.Comment, error) {
	return m.comment, m.err
}

func (m *mockCommentService) Create(ctx context.Context, taskID, callerID uuid.UUID, text string) (*models.Comment, error) {
	m.lastText = text
	return m.comment, m.err
}

func (m *mockCommentService) Update(ctx context.Context, commentID, callerID uuid.UUID, text string) (*models.Comment, error) {
	m.lastText = text
	return m.comment, m.err
}

func (m *mockCommentService) Delete(ctx context.Context, commentID, callerID uuid.UUID) error {
	return m.err
}

// mockNotificationService implements services.NotificationService.
type mockNotificationService struct {
	err      error
	read     map[uuid.UUID]bool
	notifyBy uuid.UUID
	created  []*models.Notification
}

func (m *mockNotificationService) Notify(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error) {
	return m.created, m.err
}

func (m *mockNotificationService) NotifyAsViewer(ctx context.Context, callerID, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error) {
	m.notifyBy = callerID
	return m.created, m.err
}

func (m *mockNotificationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return m.created, m.err
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id, callerID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.read[id] = true
	return nil
}

func (m *mockNotificationService) MarkUnread(ctx context.Context, id, callerID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.read[id] = false
	return nil
}

var (
	_ services.AuthService         = (*mockAccounts)(nil)
	_ auth.AuthService             = (*mockSessions)(nil)
	_ services.UserService         = (*mockUserService)(nil)
	_ services.ProjectService      = (*mockProjectService)(nil)
	_ services.TaskService         = (*mockTaskService)(nil)
	_ services.CommentService      = (*mockCommentService)(nil)
	_ services.NotificationService = (*mockNotificationService)(nil)
)

package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskflow-app/taskflow/pkg/handlers"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var user models.User
	req := handlers.RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, req, &user, "api", "auth", "register"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*handlers.LoginResponse, error) {
	var resp handlers.LoginResponse
	req := handlers.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, req, &resp, "api", "auth", "login"); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, nil, nil, "api", "auth", "logout"); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, nil, &user, "api", "auth", "me"); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAllProjects lists every project. Requires the admin role.
func (c *Client) ListAllProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	err := c.do(ctx, http.MethodGet, nil, &projects, "api", "projects")
	return projects, err
}

// ListVisibleProjects lists projects the caller can see, with per-caller counters.
func (c *Client) ListVisibleProjects(ctx context.Context) ([]*models.ProjectSummary, error) {
	var projects []*models.ProjectSummary
	err := c.do(ctx, http.MethodGet, nil, &projects, "api", "projects", "visible")
	return projects, err
}

// ListOwnedProjects lists projects the caller owns.
func (c *Client) ListOwnedProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	err := c.do(ctx, http.MethodGet, nil, &projects, "api", "projects", "owned")
	return projects, err
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	var project models.Project
	req := handlers.ProjectRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, req, &project, "api", "projects"); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodGet, nil, &project, "api", "projects", id.String()); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, name, description string) (*models.Project, error) {
	var project models.Project
	req := handlers.ProjectRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPut, req, &project, "api", "projects", id.String()); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, nil, nil, "api", "projects", id.String())
}

// ShareProject grants userID visibility of the project.
func (c *Client) ShareProject(ctx context.Context, id, userID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, handlers.ShareRequest{UserID: userID}, nil, "api", "projects", id.String(), "share")
}

func (c *Client) ProjectViewers(ctx context.Context, id uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	err := c.do(ctx, http.MethodGet, nil, &users, "api", "projects", id.String(), "viewers")
	return users, err
}

func (c *Client) ProjectTasks(ctx context.Context, id uuid.UUID) ([]*models.Task, error) {
	var tasks []*models.Task
	err := c.do(ctx, http.MethodGet, nil, &tasks, "api", "projects", id.String(), "tasks")
	return tasks, err
}

// TaskStatuses lists the selectable task statuses with display labels.
func (c *Client) TaskStatuses(ctx context.Context) ([]handlers.TaskStatusOption, error) {
	var options []handlers.TaskStatusOption
	err := c.do(ctx, http.MethodGet, nil, &options, "api", "task-statuses")
	return options, err
}

func (c *Client) CreateTask(ctx context.Context, input services.TaskInput) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, input, &task, "api", "tasks"); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, nil, &task, "api", "tasks", id.String()); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, input services.TaskInput) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, input, &task, "api", "tasks", id.String()); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, nil, nil, "api", "tasks", id.String())
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, handlers.StatusRequest{Status: status}, &task, "api", "tasks", id.String(), "status"); err != nil {
		return nil, err
	}
	return &task, nil
}

// PossibleAssignees lists the users a task can be assigned to.
func (c *Client) PossibleAssignees(ctx context.Context, id uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	err := c.do(ctx, http.MethodGet, nil, &users, "api", "tasks", id.String(), "assignees")
	return users, err
}

func (c *Client) AssignTask(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, handlers.AssignRequest{UserID: userID}, &task, "api", "tasks", id.String(), "assignee"); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := c.do(ctx, http.MethodGet, nil, &comments, "api", "tasks", taskID.String(), "comments")
	return comments, err
}

func (c *Client) CreateComment(ctx context.Context, taskID uuid.UUID, text string) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, handlers.CommentRequest{Text: text}, &comment, "api", "tasks", taskID.String(), "comments"); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodGet, nil, &comment, "api", "comments", id.String()); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, id uuid.UUID, text string) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPut, handlers.CommentRequest{Text: text}, &comment, "api", "comments", id.String()); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, nil, nil, "api", "comments", id.String())
}

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := c.do(ctx, http.MethodGet, nil, &notifications, "api", "notifications")
	return notifications, err
}

// Notify sends message to every viewer of the project.
func (c *Client) Notify(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error) {
	var notifications []*models.Notification
	req := handlers.NotifyRequest{ProjectID: projectID, TaskID: taskID, Message: message}
	err := c.do(ctx, http.MethodPost, req, &notifications, "api", "notifications")
	return notifications, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPut, nil, nil, "api", "notifications", id.String(), "read")
}

func (c *Client) MarkNotificationUnread(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPut, nil, nil, "api", "notifications", id.String(), "unread")
}

func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := c.do(ctx, http.MethodGet, nil, &users, "api", "users")
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, nil, &user, "api", "users", id.String()); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes the caller's own profile.
func (c *Client) UpdateUser(ctx context.Context, id uuid.UUID, update services.UserUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPut, update, &user, "api", "users", id.String()); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the caller's own account.
func (c *Client) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, nil, nil, "api", "users", id.String())
}

// AdminDeleteUser removes any account. Requires the admin role.
func (c *Client) AdminDeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, nil, nil, "api", "admin", "users", id.String())
}

//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/testhelpers"
)

// repoTestContext holds test dependencies shared by repository tests.
type repoTestContext struct {
	t        *testing.T
	ctx      context.Context
	users    UserRepository
	projects ProjectRepository
	grants   VisibilityRepository
	tasks    TaskRepository
	comments CommentRepository
	notifs   NotificationRepository
}

// setupRepoTest resets the shared database and returns a scoped context.
func setupRepoTest(t *testing.T) *repoTestContext {
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)
	return &repoTestContext{
		t:        t,
		ctx:      testDB.Context(t),
		users:    NewUserRepository(),
		projects: NewProjectRepository(),
		grants:   NewVisibilityRepository(),
		tasks:    NewTaskRepository(),
		comments: NewCommentRepository(),
		notifs:   NewNotificationRepository(),
	}
}

func (tc *repoTestContext) createUser(username string, roles ...string) *models.User {
	tc.t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	if err := tc.users.Create(tc.ctx, user); err != nil {
		tc.t.Fatalf("failed to create user %s: %v", username, err)
	}
	for _, role := range roles {
		if err := tc.users.AddRole(tc.ctx, user.ID, role); err != nil {
			tc.t.Fatalf("failed to add role %s: %v", role, err)
		}
	}
	user.Roles = roles
	return user
}

func (tc *repoTestContext) createProject(owner *models.User, name string) *models.Project {
	tc.t.Helper()
	project := &models.Project{Name: name, Description: name + " description", OwnerID: owner.ID}
	if err := tc.projects.Create(tc.ctx, project); err != nil {
		tc.t.Fatalf("failed to create project %s: %v", name, err)
	}
	return project
}

func (tc *repoTestContext) createTask(project *models.Project, title string, assignee *uuid.UUID) *models.Task {
	tc.t.Helper()
	task := &models.Task{
		ProjectID:      project.ID,
		Title:          title,
		Status:         models.TaskStatusTodo,
		DueDate:        time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		AssignedUserID: assignee,
	}
	if err := tc.tasks.Create(tc.ctx, task); err != nil {
		tc.t.Fatalf("failed to create task %s: %v", title, err)
	}
	return task
}

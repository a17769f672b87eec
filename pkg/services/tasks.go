package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

// TaskInput carries the writable fields of a task.
type TaskInput struct {
	ProjectID      uuid.UUID         `json:"project_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         models.TaskStatus `json:"status"`
	DueDate        time.Time         `json:"due_date"`
	AssignedUserID *uuid.UUID        `json:"assigned_user_id,omitempty"`
}

// TaskService manages tasks.
//
// Reads require a grant on the task's project. Update, UpdateStatus and
// Delete are allowed only for the task's assignee, so an unassigned task can
// be changed only through Assign.
type TaskService interface {
	ListForProject(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.Task, error)
	Get(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error)
	Create(ctx context.Context, callerID uuid.UUID, input TaskInput) (*models.Task, error)
	Update(ctx context.Context, taskID, callerID uuid.UUID, input TaskInput) (*models.Task, error)
	UpdateStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, taskID, callerID uuid.UUID) error
	// PossibleAssignees lists the viewers of the task's project.
	PossibleAssignees(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.User, error)
	// Assign sets the assignee. Any viewer of the project may assign.
	Assign(ctx context.Context, taskID, callerID, userID uuid.UUID) (*models.Task, error)
}

type taskService struct {
	taskRepo    repositories.TaskRepository
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	visibility  VisibilityService
	logger      *zap.Logger
}

// NewTaskService creates a new task service with dependencies.
func NewTaskService(
	taskRepo repositories.TaskRepository,
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	visibility VisibilityService,
	logger *zap.Logger,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		visibility:  visibility,
		logger:      logger,
	}
}

func (s *taskService) ListForProject(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.Task, error) {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.visibility.RequireViewer(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByProject(ctx, projectID)
}

func (s *taskService) Get(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.visibility.RequireViewer(ctx, task.ProjectID, callerID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Create(ctx context.Context, callerID uuid.UUID, input TaskInput) (*models.Task, error) {
	task := &models.Task{}
	if err := s.apply(ctx, task, callerID, input); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("project_id", task.ProjectID.String()))
	return task, nil
}

func (s *taskService) Update(ctx context.Context, taskID, callerID uuid.UUID, input TaskInput) (*models.Task, error) {
	task, err := s.getAssigned(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, task, callerID, input); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	task, err := s.getAssigned(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, status)
	}

	if err := s.taskRepo.UpdateStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	task.Status = status
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, taskID, callerID uuid.UUID) error {
	if _, err := s.getAssigned(ctx, taskID, callerID); err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, taskID)
}

func (s *taskService) PossibleAssignees(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.User, error) {
	task, err := s.Get(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	ids, err := s.visibility.ViewersOf(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByIDs(ctx, ids)
}

func (s *taskService) Assign(ctx context.Context, taskID, callerID, userID uuid.UUID) (*models.Task, error) {
	task, err := s.Get(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.taskRepo.UpdateAssignee(ctx, taskID, &userID); err != nil {
		return nil, err
	}
	task.AssignedUserID = &userID
	return task, nil
}

// getAssigned loads the task and requires callerID to be its assignee.
func (s *taskService) getAssigned(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsAssignedTo(callerID) {
		return nil, fmt.Errorf("%w: only the assigned user may change this task", apperrors.ErrForbidden)
	}
	return task, nil
}

// apply validates input and copies it onto task. The target project must
// exist and be visible to callerID.
func (s *taskService) apply(ctx context.Context, task *models.Task, callerID uuid.UUID, input TaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: task title is required", apperrors.ErrInvalidInput)
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, status)
	}

	if _, err := s.projectRepo.Get(ctx, input.ProjectID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: project does not exist", apperrors.ErrInvalidInput)
		}
		return err
	}
	if err := s.visibility.RequireViewer(ctx, input.ProjectID, callerID); err != nil {
		return err
	}

	if input.AssignedUserID != nil {
		if err := s.requireUser(ctx, *input.AssignedUserID); err != nil {
			return err
		}
	}

	task.ProjectID = input.ProjectID
	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.Status = status
	task.DueDate = input.DueDate
	task.AssignedUserID = input.AssignedUserID
	return nil
}

func (s *taskService) requireUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: assigned user does not exist", apperrors.ErrInvalidInput)
		}
		return err
	}
	return nil
}

// Ensure taskService implements TaskService at compile time.
var _ TaskService = (*taskService)(nil)

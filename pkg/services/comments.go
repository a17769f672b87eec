package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/database"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

// CommentService manages task comments. Only the author may edit or delete.
type CommentService interface {
	ListForTask(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.Comment, error)
	Get(ctx context.Context, commentID, callerID uuid.UUID) (*models.Comment, error)
	// Create stores the comment and notifies the project's viewers in one
	// transaction.
	Create(ctx context.Context, taskID, callerID uuid.UUID, text string) (*models.Comment, error)
	Update(ctx context.Context, commentID, callerID uuid.UUID, text string) (*models.Comment, error)
	Delete(ctx context.Context, commentID, callerID uuid.UUID) error
}

type commentService struct {
	commentRepo   repositories.CommentRepository
	taskRepo      repositories.TaskRepository
	visibility    VisibilityService
	notifications NotificationService
	tx            database.Transactor
	logger        *zap.Logger
}

// NewCommentService creates a new comment service with dependencies.
func NewCommentService(
	commentRepo repositories.CommentRepository,
	taskRepo repositories.TaskRepository,
	visibility VisibilityService,
	notifications NotificationService,
	tx database.Transactor,
	logger *zap.Logger,
) CommentService {
	return &commentService{
		commentRepo:   commentRepo,
		taskRepo:      taskRepo,
		visibility:    visibility,
		notifications: notifications,
		tx:            tx,
		logger:        logger,
	}
}

// viewableTask loads the task and requires callerID to see its project.
func (s *commentService) viewableTask(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.visibility.RequireViewer(ctx, task.ProjectID, callerID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *commentService) ListForTask(ctx context.Context, taskID, callerID uuid.UUID) ([]*models.Comment, error) {
	if _, err := s.viewableTask(ctx, taskID, callerID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByTask(ctx, taskID)
}

func (s *commentService) Get(ctx context.Context, commentID, callerID uuid.UUID) (*models.Comment, error) {
	comment, err := s.commentRepo.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.viewableTask(ctx, comment.TaskID, callerID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Create(ctx context.Context, taskID, callerID uuid.UUID, text string) (*models.Comment, error) {
	task, err := s.viewableTask(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", apperrors.ErrInvalidInput)
	}

	comment := &models.Comment{
		TaskID: taskID,
		UserID: callerID,
		Text:   text,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.commentRepo.Create(ctx, comment); err != nil {
			return err
		}
		_, err := s.notifications.Notify(ctx, task.ProjectID, &task.ID, "New comment on "+task.Title)
		return err
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// getAuthored loads the comment and requires callerID to be its author.
func (s *commentService) getAuthored(ctx context.Context, commentID, callerID uuid.UUID) (*models.Comment, error) {
	comment, err := s.commentRepo.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != callerID {
		return nil, fmt.Errorf("%w: only the author may change this comment", apperrors.ErrForbidden)
	}
	return comment, nil
}

func (s *commentService) Update(ctx context.Context, commentID, callerID uuid.UUID, text string) (*models.Comment, error) {
	comment, err := s.getAuthored(ctx, commentID, callerID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", apperrors.ErrInvalidInput)
	}

	if err := s.commentRepo.UpdateText(ctx, commentID, text); err != nil {
		return nil, err
	}
	comment.Text = text
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, commentID, callerID uuid.UUID) error {
	if _, err := s.getAuthored(ctx, commentID, callerID); err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// Ensure commentService implements CommentService at compile time.
var _ CommentService = (*commentService)(nil)

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

// NotificationService fans events out to project viewers.
type NotificationService interface {
	// Notify creates one unread notification for every user holding a grant on
	// the project at the time of the call. taskID, when set, must belong to
	// the project.
	Notify(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error)
	// NotifyAsViewer is Notify on behalf of callerID, who must be a viewer.
	NotifyAsViewer(ctx context.Context, callerID, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	// MarkRead and MarkUnread are restricted to the recipient.
	MarkRead(ctx context.Context, id, callerID uuid.UUID) error
	MarkUnread(ctx context.Context, id, callerID uuid.UUID) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	projectRepo      repositories.ProjectRepository
	taskRepo         repositories.TaskRepository
	visibility       VisibilityService
	tx               database.Transactor
	logger           *zap.Logger
}

// NewNotificationService creates a new notification service with dependencies.
func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	projectRepo repositories.ProjectRepository,
	taskRepo repositories.TaskRepository,
	visibility VisibilityService,
	tx database.Transactor,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		projectRepo:      projectRepo,
		taskRepo:         taskRepo,
		visibility:       visibility,
		tx:               tx,
		logger:           logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrInvalidInput)
	}

	var created []*models.Notification
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
			return err
		}

		if taskID != nil {
			task, err := s.taskRepo.Get(ctx, *taskID)
			if err != nil {
				if isNotFound(err) {
					return fmt.Errorf("%w: task does not exist", apperrors.ErrInvalidInput)
				}
				return err
			}
			if task.ProjectID != projectID {
				return fmt.Errorf("%w: task does not belong to project", apperrors.ErrInvalidInput)
			}
		}

		viewers, err := s.visibility.ViewersOf(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to list viewers: %w", err)
		}

		created = make([]*models.Notification, 0, len(viewers))
		for _, userID := range viewers {
			created = append(created, &models.Notification{
				ProjectID: projectID,
				TaskID:    taskID,
				UserID:    userID,
				Message:   message,
			})
		}

		return s.notificationRepo.CreateMany(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Notifications created",
		zap.String("project_id", projectID.String()),
		zap.Int("recipients", len(created)))
	return created, nil
}

func (s *notificationService) NotifyAsViewer(ctx context.Context, callerID, projectID uuid.UUID, taskID *uuid.UUID, message string) ([]*models.Notification, error) {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.visibility.RequireViewer(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return s.Notify(ctx, projectID, taskID, message)
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, callerID uuid.UUID) error {
	return s.setRead(ctx, id, callerID, true)
}

func (s *notificationService) MarkUnread(ctx context.Context, id, callerID uuid.UUID) error {
	return s.setRead(ctx, id, callerID, false)
}

func (s *notificationService) setRead(ctx context.Context, id, callerID uuid.UUID, read bool) error {
	n, err := s.notificationRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != callerID {
		return fmt.Errorf("%w: notification belongs to another user", apperrors.ErrForbidden)
	}
	return s.notificationRepo.SetRead(ctx, id, read)
}

// Ensure notificationService implements NotificationService at compile time.
var _ NotificationService = (*notificationService)(nil)

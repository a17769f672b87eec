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

// ProjectService enforces project ownership and visibility.
//
// Where both could apply, a missing project is reported as ErrNotFound before
// any ownership or visibility check returns ErrForbidden.
type ProjectService interface {
	// Create stores the project and grants visibility to the owner and every
	// admin in a single transaction.
	Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Project, error)
	Get(ctx context.Context, projectID, callerID uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, projectID, callerID uuid.UUID, name, description string) (*models.Project, error)
	Delete(ctx context.Context, projectID, callerID uuid.UUID) error
	// Share grants targetUserID visibility. Only the owner may share.
	Share(ctx context.Context, projectID, callerID, targetUserID uuid.UUID) error
	ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	// ListAll ignores grants. Callers must restrict it to admins.
	ListAll(ctx context.Context) ([]*models.Project, error)
	IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	Viewers(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.User, error)
}

type projectService struct {
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	visibility  VisibilityService
	tx          database.Transactor
	logger      *zap.Logger
}

// NewProjectService creates a new project service with dependencies.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	visibility VisibilityService,
	tx database.Transactor,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		visibility:  visibility,
		tx:          tx,
		logger:      logger,
	}
}

func (s *projectService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: owner does not exist", apperrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to look up owner: %w", err)
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return err
		}

		admins, err := s.userRepo.ListIDsWithRole(ctx, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to list admins: %w", err)
		}

		if err := s.visibility.GrantMany(ctx, project.ID, append([]uuid.UUID{ownerID}, admins...)); err != nil {
			return fmt.Errorf("failed to grant visibility: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return project, nil
}

func (s *projectService) Get(ctx context.Context, projectID, callerID uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.visibility.RequireViewer(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	return project, nil
}

// getOwned loads the project and requires callerID to own it.
func (s *projectService) getOwned(ctx context.Context, projectID, callerID uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != callerID {
		return nil, fmt.Errorf("%w: only the project owner may do this", apperrors.ErrForbidden)
	}
	return project, nil
}

func (s *projectService) Update(ctx context.Context, projectID, callerID uuid.UUID, name, description string) (*models.Project, error) {
	project, err := s.getOwned(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrInvalidInput)
	}
	project.Name = name
	project.Description = strings.TrimSpace(description)

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, projectID, callerID uuid.UUID) error {
	if _, err := s.getOwned(ctx, projectID, callerID); err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}

	s.logger.Info("Project deleted",
		zap.String("project_id", projectID.String()),
		zap.String("owner_id", callerID.String()))
	return nil
}

func (s *projectService) Share(ctx context.Context, projectID, callerID, targetUserID uuid.UUID) error {
	if _, err := s.getOwned(ctx, projectID, callerID); err != nil {
		return err
	}

	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: user to share with does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	return s.visibility.Grant(ctx, projectID, targetUserID)
}

func (s *projectService) ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error) {
	return s.projectRepo.ListVisible(ctx, userID)
}

func (s *projectService) ListOwned(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return s.projectRepo.ListByOwner(ctx, userID)
}

func (s *projectService) ListAll(ctx context.Context) ([]*models.Project, error) {
	return s.projectRepo.ListAll(ctx)
}

func (s *projectService) IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.OwnerID == userID, nil
}

func (s *projectService) Viewers(ctx context.Context, projectID, callerID uuid.UUID) ([]*models.User, error) {
	if _, err := s.Get(ctx, projectID, callerID); err != nil {
		return nil, err
	}

	ids, err := s.visibility.ViewersOf(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByIDs(ctx, ids)
}

// Ensure projectService implements ProjectService at compile time.
var _ ProjectService = (*projectService)(nil)

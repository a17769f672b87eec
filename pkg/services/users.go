package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/database"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

// UserUpdate carries profile changes. An empty Password keeps the current one.
type UserUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// UserService defines the interface for user operations.
type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	// Update changes the caller's own profile.
	Update(ctx context.Context, id, callerID uuid.UUID, update UserUpdate) (*models.User, error)
	// Delete removes the caller's own account.
	Delete(ctx context.Context, id, callerID uuid.UUID) error
	// DeleteAsAdmin removes any account. Role checks happen at the route.
	DeleteAsAdmin(ctx context.Context, id uuid.UUID) error
	// EnsureAdmin creates the account with the admin role, or grants the role
	// to an existing account with that username.
	EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error)
}

// userService implements UserService.
type userService struct {
	userRepo repositories.UserRepository
	tx       database.Transactor
	logger   *zap.Logger
}

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, tx database.Transactor, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		tx:       tx,
		logger:   logger,
	}
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) Update(ctx context.Context, id, callerID uuid.UUID, update UserUpdate) (*models.User, error) {
	if id != callerID {
		return nil, fmt.Errorf("%w: users may only update their own profile", apperrors.ErrForbidden)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email, err := normalizeIdentity(update.Username, update.Email)
	if err != nil {
		return nil, err
	}
	user.Username = username
	user.Email = email

	if update.Password != "" {
		if err := validatePassword(update.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *userService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if id != callerID {
		return fmt.Errorf("%w: users may only delete their own account", apperrors.ErrForbidden)
	}
	return s.delete(ctx, id)
}

func (s *userService) DeleteAsAdmin(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, id)
}

func (s *userService) delete(ctx context.Context, id uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	if existing != nil {
		if existing.IsAdmin() {
			return existing, nil
		}
		if err := s.userRepo.AddRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Roles = append(existing.Roles, models.RoleAdmin)
		s.logger.Info("Granted admin role", zap.String("username", existing.Username))
		return existing, nil
	}

	user, err := createUser(ctx, s.userRepo, s.tx, username, email, password, models.RoleUser, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created bootstrap admin", zap.String("username", user.Username))
	return user, nil
}

// Ensure userService implements UserService at compile time.
var _ UserService = (*userService)(nil)

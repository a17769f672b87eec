package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/database"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (token string, expiresAt time.Time, err error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService handles registration and credential checks.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	// Login returns ErrUnauthorized for an unknown user and for a wrong password alike.
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type authService struct {
	userRepo repositories.UserRepository
	tx       database.Transactor
	issuer   TokenIssuer
	logger   *zap.Logger
}

// NewAuthService creates a new auth service with dependencies.
func NewAuthService(
	userRepo repositories.UserRepository,
	tx database.Transactor,
	issuer TokenIssuer,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		tx:       tx,
		issuer:   issuer,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	user, err := createUser(ctx, s.userRepo, s.tx, username, email, password, models.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			checkPassword(string(dummyHash), password)
			return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)
	}

	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// createUser validates input, hashes the password and inserts the user with
// roles in one transaction.
func createUser(
	ctx context.Context,
	userRepo repositories.UserRepository,
	tx database.Transactor,
	username, email, password string,
	roles ...string,
) (*models.User, error) {
	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	err = tx.InTx(ctx, func(ctx context.Context) error {
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}
		for _, role := range roles {
			if err := userRepo.AddRole(ctx, user.ID, role); err != nil {
				return fmt.Errorf("failed to assign role %s: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Roles = roles
	return user, nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)

package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

// VisibilityService answers who may read a project.
// Every call reads the store; grants are never cached.
type VisibilityService interface {
	// Grant is idempotent: granting an existing pair succeeds without a duplicate.
	Grant(ctx context.Context, projectID, userID uuid.UUID) error
	// GrantMany grants every distinct user in userIDs.
	GrantMany(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error
	CanView(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	// RequireViewer returns ErrForbidden unless userID holds a grant.
	RequireViewer(ctx context.Context, projectID, userID uuid.UUID) error
	ViewersOf(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}

type visibilityService struct {
	repo repositories.VisibilityRepository
}

// NewVisibilityService creates a new visibility service.
func NewVisibilityService(repo repositories.VisibilityRepository) VisibilityService {
	return &visibilityService{repo: repo}
}

func (s *visibilityService) Grant(ctx context.Context, projectID, userID uuid.UUID) error {
	return s.repo.Grant(ctx, projectID, userID)
}

func (s *visibilityService) GrantMany(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error {
	return s.repo.GrantMany(ctx, projectID, uniqueIDs(userIDs))
}

func (s *visibilityService) CanView(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, projectID, userID)
}

func (s *visibilityService) RequireViewer(ctx context.Context, projectID, userID uuid.UUID) error {
	ok, err := s.repo.Exists(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: project is not shared with this user", apperrors.ErrForbidden)
	}
	return nil
}

func (s *visibilityService) ViewersOf(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListUserIDs(ctx, projectID)
}

// uniqueIDs drops duplicates, keeping first occurrences in order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Ensure visibilityService implements VisibilityService at compile time.
var _ VisibilityService = (*visibilityService)(nil)

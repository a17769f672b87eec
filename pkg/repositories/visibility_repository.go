package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/database"
)

// VisibilityRepository stores (project, user) read grants.
type VisibilityRepository interface {
	// Grant inserts a grant. An existing grant for the pair is left untouched.
	Grant(ctx context.Context, projectID, userID uuid.UUID) error
	// GrantMany inserts grants for every user in one round trip.
	GrantMany(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error
	Exists(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	ListUserIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}

type visibilityRepository struct{}

// NewVisibilityRepository creates a new visibility repository.
func NewVisibilityRepository() VisibilityRepository {
	return &visibilityRepository{}
}

const insertGrantQuery = `
		INSERT INTO project_visibility (id, project_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING`

func (r *visibilityRepository) Grant(ctx context.Context, projectID, userID uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, insertGrantQuery, uuid.New(), projectID, userID, time.Now()); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or user does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to grant visibility: %w", err)
	}

	return nil
}

func (r *visibilityRepository) GrantMany(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, userID := range userIDs {
		batch.Queue(insertGrantQuery, uuid.New(), projectID, userID, now)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for range userIDs {
		if _, err := br.Exec(); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: project or user does not exist", apperrors.ErrInvalidInput)
			}
			return fmt.Errorf("batch insert grant: %w", err)
		}
	}

	return nil
}

func (r *visibilityRepository) Exists(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM project_visibility WHERE project_id = $1 AND user_id = $2
		)`, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check visibility: %w", err)
	}

	return exists, nil
}

func (r *visibilityRepository) ListUserIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT user_id FROM project_visibility
		WHERE project_id = $1
		ORDER BY created_at, user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list viewers: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan viewer ids: %w", err)
	}
	return ids, nil
}

// Ensure visibilityRepository implements VisibilityRepository at compile time.
var _ VisibilityRepository = (*visibilityRepository)(nil)

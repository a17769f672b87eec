package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/database"
	"github.com/taskflow-app/taskflow/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
	ListIDsWithRole(ctx context.Context, role string) ([]uuid.UUID, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AddRole grants role to the user. Granting a held role is a no-op.
	AddRole(ctx context.Context, userID uuid.UUID, role string) error
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

const userColumns = `
		u.id, u.username, u.email, u.password_hash,
		COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}'),
		u.created_at, u.updated_at`

const userFrom = `
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id`

// Create inserts a new user. Roles are not written; use AddRole.
// Returns ErrConflict when the username or email is taken.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = q.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already registered", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user with roles.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `WHERE u.id = $1`, id)
}

// GetByUsername retrieves a user by case-insensitive username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `WHERE LOWER(u.username) = LOWER($1)`, username)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + userColumns + userFrom + `
		` + where + `
		GROUP BY u.id`

	user, err := scanUser(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// List returns all users ordered by username.
func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + userColumns + userFrom + `
		GROUP BY u.id
		ORDER BY u.username`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return scanUserRows(rows)
}

// ListByIDs returns the users whose id is in ids. Unknown ids are skipped.
func (r *userRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + userColumns + userFrom + `
		WHERE u.id = ANY($1)
		GROUP BY u.id
		ORDER BY u.username`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by id: %w", err)
	}
	defer rows.Close()

	return scanUserRows(rows)
}

// ListIDsWithRole returns the ids of every user holding role.
func (r *userRepository) ListIDsWithRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT user_id FROM user_roles WHERE role = $1 ORDER BY user_id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with role: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user ids: %w", err)
	}
	return ids, nil
}

// Update writes username, email and password hash.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $1`

	result, err := q.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already registered", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a user. Owned projects, grants, comments and notifications
// cascade; task assignments are cleared.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *userRepository) AddRole(ctx context.Context, userID uuid.UUID, role string) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, role)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to add role: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Roles,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Ensure userRepository implements UserRepository at compile time.
var _ UserRepository = (*userRepository)(nil)

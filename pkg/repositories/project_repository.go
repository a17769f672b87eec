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

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]*models.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)
	// ListVisible returns every project userID holds a grant on, with counters
	// computed for that user.
	ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at`

// Create inserts a new project.
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (id, name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = q.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.OwnerID,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	project, err := scanProject(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// Update writes name and description. The owner never changes.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	project.UpdatedAt = time.Now()

	query := `
		UPDATE projects
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1`

	result, err := q.Exec(ctx, query, project.ID, project.Name, project.Description, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a project by ID.
// Grants, tasks, comments and notifications are deleted via CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ListAll returns every project, newest first.
func (r *projectRepository) ListAll(ctx context.Context) ([]*models.Project, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+projectColumns+` FROM projects p ORDER BY p.created_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return scanProjectRows(rows)
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + projectColumns + `
		FROM projects p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC, p.id`

	rows, err := q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned projects: %w", err)
	}
	defer rows.Close()

	return scanProjectRows(rows)
}

func (r *projectRepository) ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + projectColumns + `,
		       u.username,
		       (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
		       (SELECT COUNT(*) FROM notifications n
		         WHERE n.project_id = p.id AND n.user_id = $1 AND NOT n.is_read)
		FROM project_visibility v
		JOIN projects p ON p.id = v.project_id
		JOIN users u ON u.id = p.owner_id
		WHERE v.user_id = $1
		ORDER BY p.created_at DESC, p.id`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible projects: %w", err)
	}
	defer rows.Close()

	summaries := make([]*models.ProjectSummary, 0)
	for rows.Next() {
		var s models.ProjectSummary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.OwnerID,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.OwnerUsername,
			&s.TaskCount,
			&s.UnreadNotificationsCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project summaries: %w", err)
	}

	return summaries, nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjectRows(rows pgx.Rows) ([]*models.Project, error) {
	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// Ensure projectRepository implements ProjectRepository at compile time.
var _ ProjectRepository = (*projectRepository)(nil)

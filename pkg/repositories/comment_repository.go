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

// CommentRepository defines the interface for comment data access.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error)
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct{}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository() CommentRepository {
	return &commentRepository{}
}

const commentSelect = `
		SELECT c.id, c.task_id, c.user_id, u.username, c.text, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.user_id`

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err = q.Exec(ctx, `
		INSERT INTO comments (id, task_id, user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID,
		comment.TaskID,
		comment.UserID,
		comment.Text,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: task or author does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

func (r *commentRepository) Get(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := scanComment(q.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}

	return comment, nil
}

// ListByTask returns the task's comments oldest first.
func (r *commentRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, commentSelect+`
		WHERE c.task_id = $1
		ORDER BY c.created_at, c.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

func (r *commentRepository) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `
		UPDATE comments SET text = $2, updated_at = $3 WHERE id = $1`,
		id, text, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(
		&c.ID,
		&c.TaskID,
		&c.UserID,
		&c.AuthorUsername,
		&c.Text,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Ensure commentRepository implements CommentRepository at compile time.
var _ CommentRepository = (*commentRepository)(nil)

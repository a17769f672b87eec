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

// NotificationRepository defines the interface for notification data access.
type NotificationRepository interface {
	// CreateMany inserts every notification in one batch.
	CreateMany(ctx context.Context, notifications []*models.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	// ListByUser returns the user's notifications newest first, with project
	// name and task title filled in.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
	CountUnread(ctx context.Context, projectID, userID uuid.UUID) (int, error)
}

type notificationRepository struct{}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository() NotificationRepository {
	return &notificationRepository{}
}

const notificationSelect = `
		SELECT n.id, n.project_id, n.task_id, n.user_id, n.message, n.is_read, n.created_at,
		       p.name, COALESCE(t.title, '')
		FROM notifications n
		JOIN projects p ON p.id = n.project_id
		LEFT JOIN tasks t ON t.id = n.task_id`

func (r *notificationRepository) CreateMany(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, project_id, task_id, user_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	batch := &pgx.Batch{}
	for _, n := range notifications {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		batch.Queue(query, n.ID, n.ProjectID, n.TaskID, n.UserID, n.Message, n.IsRead, n.CreatedAt)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for range notifications {
		if _, err := br.Exec(); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: project, task or recipient does not exist", apperrors.ErrInvalidInput)
			}
			return fmt.Errorf("batch insert notification: %w", err)
		}
	}

	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	n, err := scanNotification(q.QueryRow(ctx, notificationSelect+` WHERE n.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, notificationSelect+`
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC, n.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `UPDATE notifications SET is_read = $2 WHERE id = $1`, id, read)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, projectID, userID uuid.UUID) (int, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE project_id = $1 AND user_id = $2 AND NOT is_read`, projectID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID,
		&n.ProjectID,
		&n.TaskID,
		&n.UserID,
		&n.Message,
		&n.IsRead,
		&n.CreatedAt,
		&n.ProjectName,
		&n.TaskTitle,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Ensure notificationRepository implements NotificationRepository at compile time.
var _ NotificationRepository = (*notificationRepository)(nil)

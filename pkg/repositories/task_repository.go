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

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error
	// UpdateAssignee sets the assignee; nil clears it.
	UpdateAssignee(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskRepository struct{}

// NewTaskRepository creates a new task repository.
func NewTaskRepository() TaskRepository {
	return &taskRepository{}
}

const taskColumns = `id, project_id, title, description, status, due_date, assigned_user_id, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = q.Exec(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Description,
		string(task.Status),
		task.DueDate,
		task.AssignedUserID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or assignee does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (r *taskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	task, err := scanTask(q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByProject returns the project's tasks ordered by due date.
func (r *taskRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE project_id = $1
		ORDER BY due_date, created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update writes every mutable field, including a move to another project.
func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	task.UpdatedAt = time.Now()

	query := `
		UPDATE tasks
		SET project_id = $2, title = $3, description = $4, status = $5,
		    due_date = $6, assigned_user_id = $7, updated_at = $8
		WHERE id = $1`

	result, err := q.Exec(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Description,
		string(task.Status),
		task.DueDate,
		task.AssignedUserID,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project or assignee does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *taskRepository) UpdateAssignee(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `
		UPDATE tasks SET assigned_user_id = $2, updated_at = $3 WHERE id = $1`,
		id, userID, time.Now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: assignee does not exist", apperrors.ErrInvalidInput)
		}
		return fmt.Errorf("failed to update task assignee: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a task. Comments and task notifications cascade.
func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var status string
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&status,
		&t.DueDate,
		&t.AssignedUserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	return &t, nil
}

// Ensure taskRepository implements TaskRepository at compile time.
var _ TaskRepository = (*taskRepository)(nil)

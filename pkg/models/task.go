package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

var taskStatusLabels = map[TaskStatus]string{
	TaskStatusTodo:       "To Do",
	TaskStatusInProgress: "In Progress",
	TaskStatusDone:       "Done",
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	_, ok := taskStatusLabels[s]
	return ok
}

// Label returns the human-readable name, or the raw value for unknown statuses.
func (s TaskStatus) Label() string {
	if label, ok := taskStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Task is a unit of work inside a project.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	ProjectID      uuid.UUID  `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	DueDate        time.Time  `json:"due_date"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsAssignedTo reports whether userID is the task's assignee.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedUserID != nil && *t.AssignedUserID == userID
}

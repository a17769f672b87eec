package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message addressed to one viewer of a project.
// Only IsRead changes after creation.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	ProjectName string     `json:"project_name,omitempty"`
	TaskTitle   string     `json:"task_title,omitempty"`
}

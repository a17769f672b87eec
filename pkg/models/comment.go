package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a note left on a task by its author.
type Comment struct {
	ID             uuid.UUID `json:"id"`
	TaskID         uuid.UUID `json:"task_id"`
	UserID         uuid.UUID `json:"user_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Package models contains domain types for taskflow.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a container of tasks with exactly one owner.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectSummary is a project as seen by one viewer, with per-viewer counters.
type ProjectSummary struct {
	Project
	OwnerUsername            string `json:"owner_username"`
	TaskCount                int    `json:"task_count"`
	UnreadNotificationsCount int    `json:"unread_notifications_count"`
}

// VisibilityGrant lets UserID read ProjectID.
// At most one grant exists per (ProjectID, UserID).
type VisibilityGrant struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

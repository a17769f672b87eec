// Package apperrors holds the sentinel errors shared by services and handlers.
// Services wrap them with fmt.Errorf("%w: ...") and handlers match with errors.Is.
package apperrors

import "errors"

var (
	// ErrNotFound means a referenced project, task, comment, notification or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller lacks the relationship (owner, author, assignee, viewer) the operation requires.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput means a required field is missing or a referenced foreign entity does not exist.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict means a unique value (username, email) is already taken.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized means credentials or a token were rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

package services

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
)

// MinPasswordLength is the shortest password accepted at registration or update.
const MinPasswordLength = 8

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// dummyHash is compared against when a login names an unknown user so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskflow-dummy-password"), bcrypt.DefaultCost)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidInput, MinPasswordLength)
	}
	if len(password) > 72 {
		// bcrypt ignores bytes past 72.
		return fmt.Errorf("%w: password must be at most 72 bytes", apperrors.ErrInvalidInput)
	}
	return nil
}

// normalizeIdentity trims username and email and requires both.
func normalizeIdentity(username, email string) (string, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return "", "", fmt.Errorf("%w: username is required", apperrors.ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("%w: a valid email is required", apperrors.ErrInvalidInput)
	}
	return username, email, nil
}

// isNotFound reports whether err wraps apperrors.ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

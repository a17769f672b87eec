// Package testhelpers provides utilities for testing taskflow components.
package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestJWTSecret is a signing secret long enough to pass config validation.
const TestJWTSecret = "test-secret-0123456789abcdef012345"

// GenerateTestJWT signs an HS256 token with the claim layout the server issues.
func GenerateTestJWT(secret string, userID uuid.UUID, username string, roles ...string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"name":  username,
		"email": username + "@example.com",
		"roles": roles,
		"iss":   "taskflow",
		"aud":   []string{"taskflow-api"},
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(secret string, userID uuid.UUID, username string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(secret, userID, username, roles...)
}

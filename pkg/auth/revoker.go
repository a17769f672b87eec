package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks token ids invalidated by logout.
type Revoker interface {
	// Revoke marks jti as revoked until the token would have expired anyway.
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevoker stores revoked token ids as expiring Redis keys so every
// instance behind a load balancer sees the same revocations.
type RedisRevoker struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisRevoker creates a Redis-backed revoker.
// keyPrefix defaults to "taskflow:revoked:" if empty.
func NewRedisRevoker(client *redis.Client, keyPrefix string) *RedisRevoker {
	if keyPrefix == "" {
		keyPrefix = "taskflow:revoked:"
	}
	return &RedisRevoker{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (r *RedisRevoker) key(jti string) string {
	return r.keyPrefix + jti
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, r.key(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

// NoopRevoker is used when Redis is not configured. Logout then only clears
// the session cookie and bearer tokens stay valid until they expire.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

var (
	_ Revoker = (*RedisRevoker)(nil)
	_ Revoker = NoopRevoker{}
)

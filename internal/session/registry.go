package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by Get when no session record exists for the user.
var ErrNoSession = errors.New("no active session")

// Registry maps a user to the single currently valid refresh token. Put
// overwrites any prior record, so at most one session is live per user.
type Registry interface {
	Put(ctx context.Context, userID string, refreshToken string) error
	Get(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

// Put stores the refresh token with a fresh TTL. Calling it again for the
// same user resets the expiry clock (rotation, not append).
func (r *RedisRegistry) Put(ctx context.Context, userID string, refreshToken string) error {
	if err := r.client.Set(ctx, sessionKey(userID), refreshToken, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, userID string) (string, error) {
	value, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session record: %w", err)
	}
	return value, nil
}

// Revoke deletes the session record. Revoking an absent record is not an
// error.
func (r *RedisRegistry) Revoke(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("revoke session record: %w", err)
	}
	return nil
}

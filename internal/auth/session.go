package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// SessionStore keeps server-side login sessions in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a store whose sessions expire after ttl.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create opens a session for accountID and returns its id.
func (s *SessionStore) Create(ctx context.Context, accountID int64) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+id, accountID, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Lookup returns the account bound to session id.
func (s *SessionStore) Lookup(ctx context.Context, id string) (int64, error) {
	val, err := s.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// Destroy removes the session; unknown ids are ignored.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// Package session implements the SessionStore on Redis. Each user owns a
// single key, so replacing a session is one SET and concurrent logins can
// never leave more than one session behind.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/mflix-backend/internal/domain"
)

// Store provides login session persistence backed by Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session store. Keys are prefix+userID; a zero ttl keeps
// sessions until they are replaced or deleted.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return s.prefix + userID
}

// CreateSession replaces the session of userID with token.
func (s *Store) CreateSession(ctx context.Context, userID, token string) (bool, error) {
	if err := s.redis.Set(ctx, s.key(userID), token, s.ttl).Err(); err != nil {
		return false, fmt.Errorf("%w: session %s: %w", domain.ErrInvalidOperation, userID, err)
	}
	return true, nil
}

// GetSession returns the session of userID, or nil if there is none.
func (s *Store) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	token, err := s.redis.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", domain.ErrInvalidOperation, userID, err)
	}

	return &domain.Session{UserID: userID, Token: token}, nil
}

// DeleteUserSessions removes the session of userID. Deleting a missing key
// succeeds.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (bool, error) {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return false, fmt.Errorf("%w: session %s: %w", domain.ErrInvalidOperation, userID, err)
	}
	return true, nil
}

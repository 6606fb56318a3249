// Package store defines the data-access contracts the application layer
// consumes. Backends live under internal/adapter and each implements the
// same three stores over its own storage.
package store

import (
	"context"
	"iter"

	"github.com/heartmarshall/mflix-backend/internal/domain"
)

// Collection names shared by every backend.
const (
	UsersCollection    = "users"
	SessionsCollection = "sessions"
	CommentsCollection = "comments"
)

// UserStore owns the users collection.
type UserStore interface {
	// AddUser inserts u with majority durability. It fails with
	// domain.ErrDuplicateEntity when the email is already registered and
	// reports whether the committed record can be read back.
	AddUser(ctx context.Context, u *domain.User) (bool, error)
	// GetUser returns nil, nil when no user has the email.
	GetUser(ctx context.Context, email string) (*domain.User, error)
	// DeleteUser removes the user's sessions and then the user. Failures
	// are reported as false, never as an error.
	DeleteUser(ctx context.Context, email string) bool
	// UpdateUserPreferences replaces the whole preferences document.
	// A nil prefs is a no-op that reports false.
	UpdateUserPreferences(ctx context.Context, email string, prefs domain.Preferences) (bool, error)
}

// SessionStore owns the sessions collection.
type SessionStore interface {
	// CreateSession replaces any session of userID with a new one.
	CreateSession(ctx context.Context, userID, token string) (bool, error)
	// GetSession returns nil, nil when userID has no session.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	// DeleteUserSessions reports whether the delete was acknowledged,
	// including when nothing matched.
	DeleteUserSessions(ctx context.Context, userID string) (bool, error)
}

// CommentStore owns the comments collection.
type CommentStore interface {
	// GetComment returns nil, nil when the comment does not exist. A malformed
	// id fails with domain.ErrInvalidArgument.
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	// AddComment inserts c with majority durability and returns the record
	// as committed.
	AddComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error)
	// UpdateComment sets text and a fresh date when email owns the comment.
	// Absence and foreign ownership both report false.
	UpdateComment(ctx context.Context, id, text, email string) (bool, error)
	// DeleteComment removes the comment when email owns it.
	// Absence and foreign ownership both report false.
	DeleteComment(ctx context.Context, id, email string) (bool, error)
	// MostActiveCommenters yields at most domain.MaxCritics authors ordered
	// by comment count, descending. The query runs when the sequence is
	// ranged over and is read under majority consistency.
	MostActiveCommenters(ctx context.Context) iter.Seq2[domain.Critic, error]
}

// Stores bundles one implementation of each store together with the
// function that releases their shared connection.
type Stores struct {
	Users    UserStore
	Sessions SessionStore
	Comments CommentStore

	closers []func(context.Context) error
}

// NewStores assembles a Stores value. closers run in reverse order on Close.
func NewStores(users UserStore, sessions SessionStore, comments CommentStore, closers ...func(context.Context) error) *Stores {
	return &Stores{
		Users:    users,
		Sessions: sessions,
		Comments: comments,
		closers:  closers,
	}
}

// Close releases every backend connection. It returns the first error
// encountered but always runs all closers.
func (s *Stores) Close(ctx context.Context) error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CollectCritics drains a leaderboard sequence into a slice. It stops at the
// first error.
func CollectCritics(seq iter.Seq2[domain.Critic, error]) ([]domain.Critic, error) {
	critics := []domain.Critic{}
	for c, err := range seq {
		if err != nil {
			return nil, err
		}
		critics = append(critics, c)
	}
	return critics, nil
}

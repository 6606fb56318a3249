// Package session implements the SessionStore on MongoDB.
package session

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// Repo provides login session persistence backed by MongoDB.
type Repo struct {
	sessions *mongo.Collection
}

// New creates a new session repository.
func New(db *mongo.Database) *Repo {
	return &Repo{sessions: db.Collection(store.SessionsCollection)}
}

type sessionDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UserID string             `bson:"user_id"`
	JWT    string             `bson:"jwt"`
}

// CreateSession stores a new session for userID after removing any existing
// ones. The lookup and the insert are separate operations; two concurrent
// logins for the same user may both insert.
func (r *Repo) CreateSession(ctx context.Context, userID, token string) (bool, error) {
	filter := bson.D{{Key: "user_id", Value: userID}}

	err := r.sessions.FindOne(ctx, filter, options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})).Err()
	switch {
	case err == nil:
		if _, err := r.sessions.DeleteMany(ctx, filter); err != nil {
			return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "session", userID))
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "session", userID))
	}

	if _, err := r.sessions.InsertOne(ctx, sessionDoc{UserID: userID, JWT: token}); err != nil {
		return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "session", userID))
	}

	return true, nil
}

// GetSession returns the session of userID, or nil if there is none.
func (r *Repo) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	var doc sessionDoc
	err := r.sessions.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "session", userID))
	}

	return &domain.Session{UserID: doc.UserID, Token: doc.JWT}, nil
}

// DeleteUserSessions removes every session of userID.
func (r *Repo) DeleteUserSessions(ctx context.Context, userID string) (bool, error) {
	if _, err := r.sessions.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}}); err != nil {
		return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "session", userID))
	}
	return true, nil
}

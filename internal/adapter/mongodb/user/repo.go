// Package user implements the UserStore on MongoDB.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// sessionDeleter is the part of the session store DeleteUser cascades into.
type sessionDeleter interface {
	DeleteUserSessions(ctx context.Context, userID string) (bool, error)
}

// Repo provides user persistence backed by MongoDB.
type Repo struct {
	log      *slog.Logger
	users    *mongo.Collection
	durable  *mongo.Collection
	sessions sessionDeleter
}

// New creates a new user repository. sessions receives the cascade when a
// user is deleted.
func New(logger *slog.Logger, db *mongo.Database, sessions sessionDeleter) *Repo {
	return &Repo{
		log:      logger.With("store", "user"),
		users:    db.Collection(store.UsersCollection),
		durable:  mongodb.DurableCollection(db, store.UsersCollection),
		sessions: sessions,
	}
}

// userDoc is the BSON shape of a users document.
type userDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Password    string             `bson:"password"`
	Preferences map[string]any     `bson:"preferences"`
}

// AddUser inserts u unless its email is taken. On success u.ID holds the
// generated identifier.
func (r *Repo) AddUser(ctx context.Context, u *domain.User) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}

	existing, err := r.GetUser(ctx, u.Email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		r.log.DebugContext(ctx, "duplicate registration rejected", slog.String("email", u.Email))
		return false, fmt.Errorf("user %s: %w", u.Email, domain.ErrDuplicateEntity)
	}

	doc := bson.D{
		{Key: "name", Value: u.Name},
		{Key: "email", Value: u.Email},
		{Key: "password", Value: u.HashedPassword},
	}
	// A nil map leaves the field out; an empty one is stored as {}.
	if u.Preferences != nil {
		doc = append(doc, bson.E{Key: "preferences", Value: map[string]any(u.Preferences)})
	}

	res, err := r.durable.InsertOne(ctx, doc)
	if err != nil {
		return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "user", u.Email))
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}

	committed, err := r.GetUser(ctx, u.Email)
	if err != nil {
		return false, err
	}

	return committed != nil, nil
}

// GetUser returns the user registered with email, or nil if there is none.
func (r *Repo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "user", email))
	}

	return toDomain(doc), nil
}

// DeleteUser drops the user's sessions and then every user with the email.
// It never returns an error: failures are logged and reported as false.
func (r *Repo) DeleteUser(ctx context.Context, email string) bool {
	if _, err := r.sessions.DeleteUserSessions(ctx, email); err != nil {
		r.log.WarnContext(ctx, "delete user: session cleanup failed",
			slog.String("email", email), slog.Any("error", err))
		return false
	}

	if _, err := r.users.DeleteMany(ctx, bson.D{{Key: "email", Value: email}}); err != nil {
		r.log.WarnContext(ctx, "delete user failed",
			slog.String("email", email), slog.Any("error", mongodb.MapError(err, "user", email)))
		return false
	}

	return true
}

// UpdateUserPreferences replaces the preferences document of the user.
func (r *Repo) UpdateUserPreferences(ctx context.Context, email string, prefs domain.Preferences) (bool, error) {
	if prefs == nil {
		return false, nil
	}

	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "preferences", Value: map[string]any(prefs)}}}},
	)
	if err != nil {
		return false, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "user", email))
	}

	return res.MatchedCount > 0, nil
}

func toDomain(doc userDoc) *domain.User {
	return &domain.User{
		ID:             doc.ID.Hex(),
		Name:           doc.Name,
		Email:          doc.Email,
		HashedPassword: doc.Password,
		Preferences:    plainPreferences(doc.Preferences),
	}
}

// plainPreferences rebuilds nested documents and arrays as map[string]any
// and []any so driver types do not leak into the domain.
func plainPreferences(m map[string]any) domain.Preferences {
	if m == nil {
		return nil
	}
	return domain.Preferences(plainMap(m))
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case bson.A:
		return plainSlice(t)
	case []any:
		return plainSlice(t)
	default:
		return v
	}
}

func plainSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = plainValue(v)
	}
	return out
}

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/heartmarshall/mflix-backend/internal/store"
)

// IndexOptions tunes EnsureIndexes.
type IndexOptions struct {
	// UniqueSessionToken rejects a second session carrying the same token.
	UniqueSessionToken bool
}

// EnsureIndexes creates the indexes the stores rely on. It is idempotent.
//
// users.email is unique so two concurrent registrations cannot both pass the
// duplicate check. sessions.user_id is deliberately not unique; the
// one-session rule is enforced by CreateSession.
func EnsureIndexes(ctx context.Context, db *mongo.Database, opts IndexOptions) error {
	specs := map[string][]mongo.IndexModel{
		store.UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			},
		},
		store.SessionsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id"),
			},
		},
		store.CommentsCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email"),
			},
			{
				Keys:    bson.D{{Key: "movie_id", Value: 1}},
				Options: options.Index().SetName("movie_id"),
			},
		},
	}

	if opts.UniqueSessionToken {
		specs[store.SessionsCollection] = append(specs[store.SessionsCollection], mongo.IndexModel{
			Keys:    bson.D{{Key: "jwt", Value: 1}},
			Options: options.Index().SetName("jwt_unique").SetUnique(true),
		})
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}

	return nil
}

// Package comment implements the CommentStore on MongoDB.
package comment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// Repo provides comment persistence backed by MongoDB.
type Repo struct {
	comments   *mongo.Collection
	durable    *mongo.Collection
	consistent *mongo.Collection
	now        func() time.Time
}

// New creates a new comment repository.
func New(db *mongo.Database) *Repo {
	return &Repo{
		comments:   db.Collection(store.CommentsCollection),
		durable:    mongodb.DurableCollection(db, store.CommentsCollection),
		consistent: mongodb.ConsistentCollection(db, store.CommentsCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type commentDoc struct {
	ID      primitive.ObjectID `bson:"_id"`
	Name    string             `bson:"name"`
	Email   string             `bson:"email"`
	MovieID primitive.ObjectID `bson:"movie_id"`
	Text    string             `bson:"text"`
	Date    time.Time          `bson:"date"`
}

type criticDoc struct {
	Email string `bson:"_id"`
	Count int64  `bson:"count"`
}

// GetComment returns the comment with id, or nil if there is none.
// An id that is not an ObjectID fails with ErrInvalidArgument.
func (r *Repo) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	var doc commentDoc
	err = r.comments.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mongodb.Fail(domain.ErrInvalidOperation, mongodb.MapError(err, "comment", id))
	}

	return toDomain(doc), nil
}

// AddComment inserts c and returns the record read back from storage.
// A missing id or date is filled in before the insert.
func (r *Repo) AddComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}

	doc, err := r.toDoc(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}

	if _, err := r.durable.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, mongodb.MapError(err, "comment", doc.ID.Hex()))
	}

	committed, err := r.GetComment(ctx, doc.ID.Hex())
	if err != nil {
		return nil, err
	}
	if committed == nil {
		return nil, fmt.Errorf("%w: comment %s: not readable after insert", domain.ErrInvalidOperation, doc.ID.Hex())
	}

	return committed, nil
}

// UpdateComment replaces the text of the comment and refreshes its date when
// email is the author. The ownership check and the write are one update.
func (r *Repo) UpdateComment(ctx context.Context, id, text, email string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}
	if email == "" {
		return false, nil
	}

	res, err := r.comments.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "text", Value: text},
			{Key: "date", Value: r.now()},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, mongodb.MapError(err, "comment", id))
	}

	return res.MatchedCount == 1, nil
}

// DeleteComment removes the comment when email is the author.
func (r *Repo) DeleteComment(ctx context.Context, id, email string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if email == "" {
		return false, nil
	}

	res, err := r.comments.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "email", Value: email}})
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, mongodb.MapError(err, "comment", id))
	}

	return res.DeletedCount == 1, nil
}

// MostActiveCommenters groups comments by author email and yields the
// authors with the most comments first.
func (r *Repo) MostActiveCommenters(ctx context.Context) iter.Seq2[domain.Critic, error] {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$email"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: domain.MaxCritics}},
	}

	return func(yield func(domain.Critic, error) bool) {
		cur, err := r.consistent.Aggregate(ctx, pipeline)
		if err != nil {
			yield(domain.Critic{}, fmt.Errorf("%w: aggregate critics: %w", domain.ErrInvalidOperation, err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var row criticDoc
			if err := cur.Decode(&row); err != nil {
				yield(domain.Critic{}, fmt.Errorf("%w: decode critic: %w", domain.ErrInvalidOperation, err))
				return
			}
			if !yield(domain.Critic{Email: row.Email, Count: row.Count}, nil) {
				return
			}
		}

		if err := cur.Err(); err != nil {
			yield(domain.Critic{}, fmt.Errorf("%w: iterate critics: %w", domain.ErrInvalidOperation, err))
		}
	}
}

func (r *Repo) toDoc(c *domain.Comment) (commentDoc, error) {
	movieID, err := primitive.ObjectIDFromHex(c.MovieID)
	if err != nil {
		return commentDoc{}, domain.NewValidationError("movie_id", "not an ObjectID")
	}

	id := primitive.NewObjectID()
	if c.ID != "" {
		if id, err = parseID(c.ID); err != nil {
			return commentDoc{}, err
		}
	}

	date := c.Date.UTC()
	if c.Date.IsZero() {
		date = r.now()
	}

	return commentDoc{
		ID:      id,
		Name:    c.Name,
		Email:   c.Email,
		MovieID: movieID,
		Text:    c.Text,
		Date:    date,
	}, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.NewValidationError("id", "not an ObjectID")
	}
	return oid, nil
}

func toDomain(doc commentDoc) *domain.Comment {
	return &domain.Comment{
		ID:      doc.ID.Hex(),
		MovieID: doc.MovieID.Hex(),
		Name:    doc.Name,
		Email:   doc.Email,
		Text:    doc.Text,
		Date:    doc.Date.UTC(),
	}
}

// Package comment implements the CommentStore on PostgreSQL.
package comment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides comment persistence backed by PostgreSQL.
type Repo struct {
	tx  *postgres.TxManager
	now func() time.Time
}

// New creates a new comment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{
		tx:  postgres.NewTxManager(pool),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

const commentColumns = `id::text, movie_id, name, email, text, date`

const insertSQL = `
INSERT INTO comments (id, movie_id, name, email, text, date)
VALUES ($1, $2, $3, $4, $5, $6)`

const getByIDSQL = `
SELECT ` + commentColumns + `
FROM comments
WHERE id = $1`

// GetComment returns the comment with id, or nil if there is none.
// An id that is not a UUID fails with ErrInvalidArgument.
func (r *Repo) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	var c domain.Comment
	err = r.tx.Querier(ctx).
		QueryRow(ctx, getByIDSQL, uid).
		Scan(&c.ID, &c.MovieID, &c.Name, &c.Email, &c.Text, &c.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "comment", id))
	}
	c.Date = c.Date.UTC()

	return &c, nil
}

// AddComment inserts c and returns the record read back from storage.
// A missing id or date is filled in before the insert.
func (r *Repo) AddComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}

	id := uuid.New()
	if c.ID != "" {
		parsed, err := parseID(c.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
		}
		id = parsed
	}

	date := c.Date.UTC().Truncate(time.Microsecond)
	if c.Date.IsZero() {
		date = r.now()
	}

	err := r.tx.RunDurable(ctx, func(ctx context.Context) error {
		_, err := r.tx.Querier(ctx).Exec(ctx, insertSQL, id, c.MovieID, c.Name, c.Email, c.Text, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, postgres.MapError(err, "comment", id.String()))
	}

	committed, err := r.GetComment(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if committed == nil {
		return nil, fmt.Errorf("%w: comment %s: not readable after insert", domain.ErrInvalidOperation, id)
	}

	return committed, nil
}

// UpdateComment replaces the text of the comment and refreshes its date when
// email is the author. The ownership check and the write are one statement.
func (r *Repo) UpdateComment(ctx context.Context, id, text, email string) (bool, error) {
	uid, err := parseID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, err)
	}
	if email == "" {
		return false, nil
	}

	query, args, err := psql.Update(store.CommentsCollection).
		Set("text", text).
		Set("date", r.now()).
		Where(squirrel.Eq{"id": uid.String(), "email": email}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: build update: %w", domain.ErrInvalidOperation, err)
	}

	tag, err := r.tx.Querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidOperation, postgres.MapError(err, "comment", id))
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteComment removes the comment when email is the author.
func (r *Repo) DeleteComment(ctx context.Context, id, email string) (bool, error) {
	uid, err := parseID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if email == "" {
		return false, nil
	}

	query, args, err := psql.Delete(store.CommentsCollection).
		Where(squirrel.Eq{"id": uid.String(), "email": email}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: build delete: %w", domain.ErrInvalidArgument, err)
	}

	tag, err := r.tx.Querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, postgres.MapError(err, "comment", id))
	}

	return tag.RowsAffected() == 1, nil
}

// MostActiveCommenters groups comments by author email and yields the
// authors with the most comments first.
func (r *Repo) MostActiveCommenters(ctx context.Context) iter.Seq2[domain.Critic, error] {
	return func(yield func(domain.Critic, error) bool) {
		query, args, err := psql.Select("email", "count(*) AS count").
			From(store.CommentsCollection).
			GroupBy("email").
			OrderBy("count DESC").
			Limit(domain.MaxCritics).
			ToSql()
		if err != nil {
			yield(domain.Critic{}, fmt.Errorf("%w: build critics query: %w", domain.ErrInvalidOperation, err))
			return
		}

		rows, err := r.tx.Querier(ctx).Query(ctx, query, args...)
		if err != nil {
			yield(domain.Critic{}, fmt.Errorf("%w: query critics: %w", domain.ErrInvalidOperation, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.Critic
			if err := rows.Scan(&c.Email, &c.Count); err != nil {
				yield(domain.Critic{}, fmt.Errorf("%w: scan critic: %w", domain.ErrInvalidOperation, err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(domain.Critic{}, fmt.Errorf("%w: iterate critics: %w", domain.ErrInvalidOperation, err))
		}
	}
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", "not a UUID")
	}
	return uid, nil
}

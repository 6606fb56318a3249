// Package user implements the UserStore on PostgreSQL.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mflix-backend/internal/domain"
)

// sessionDeleter is the part of the session store DeleteUser cascades into.
type sessionDeleter interface {
	DeleteUserSessions(ctx context.Context, userID string) (bool, error)
}

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	log      *slog.Logger
	tx       *postgres.TxManager
	sessions sessionDeleter
}

// New creates a new user repository. sessions receives the cascade when a
// user is deleted.
func New(logger *slog.Logger, pool *pgxpool.Pool, sessions sessionDeleter) *Repo {
	return &Repo{
		log:      logger.With("store", "user"),
		tx:       postgres.NewTxManager(pool),
		sessions: sessions,
	}
}

const insertSQL = `
INSERT INTO users (name, email, password, preferences)
VALUES ($1, $2, $3, $4)
RETURNING id::text`

const getByEmailSQL = `
SELECT id::text, name, email, password, preferences
FROM users
WHERE email = $1
LIMIT 1`

const deleteSQL = `DELETE FROM users WHERE email = $1`

const updatePreferencesSQL = `UPDATE users SET preferences = $2 WHERE email = $1`

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

	var id string
	err = r.tx.RunDurable(ctx, func(ctx context.Context) error {
		q := r.tx.Querier(ctx)
		return q.QueryRow(ctx, insertSQL, u.Name, u.Email, u.HashedPassword, preferencesArg(u.Preferences)).Scan(&id)
	})
	if err != nil {
		return false, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "user", u.Email))
	}
	u.ID = id

	committed, err := r.GetUser(ctx, u.Email)
	if err != nil {
		return false, err
	}

	return committed != nil, nil
}

// GetUser returns the user registered with email, or nil if there is none.
func (r *Repo) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var (
		u     domain.User
		prefs map[string]any
	)
	err := r.tx.Querier(ctx).
		QueryRow(ctx, getByEmailSQL, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &prefs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "user", email))
	}
	u.Preferences = prefs

	return &u, nil
}

// DeleteUser drops the user's sessions and then every user with the email.
// It never returns an error: failures are logged and reported as false.
func (r *Repo) DeleteUser(ctx context.Context, email string) bool {
	if _, err := r.sessions.DeleteUserSessions(ctx, email); err != nil {
		r.log.WarnContext(ctx, "delete user: session cleanup failed",
			slog.String("email", email), slog.Any("error", err))
		return false
	}

	if _, err := r.tx.Querier(ctx).Exec(ctx, deleteSQL, email); err != nil {
		r.log.WarnContext(ctx, "delete user failed",
			slog.String("email", email), slog.Any("error", postgres.MapError(err, "user", email)))
		return false
	}

	return true
}

// UpdateUserPreferences replaces the preferences document of the user.
func (r *Repo) UpdateUserPreferences(ctx context.Context, email string, prefs domain.Preferences) (bool, error) {
	if prefs == nil {
		return false, nil
	}

	tag, err := r.tx.Querier(ctx).Exec(ctx, updatePreferencesSQL, email, map[string]any(prefs))
	if err != nil {
		return false, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "user", email))
	}

	return tag.RowsAffected() > 0, nil
}

// preferencesArg keeps absent preferences as SQL NULL rather than a JSON null.
func preferencesArg(p domain.Preferences) any {
	if p == nil {
		return nil
	}
	return map[string]any(p)
}

// Package session implements the SessionStore on PostgreSQL.
package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mflix-backend/internal/domain"
)

// Repo provides login session persistence backed by PostgreSQL.
type Repo struct {
	tx *postgres.TxManager
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{tx: postgres.NewTxManager(pool)}
}

// lockUserSQL serializes logins of one user until the transaction ends.
const lockUserSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

const deleteByUserSQL = `DELETE FROM sessions WHERE user_id = $1`

const insertSQL = `INSERT INTO sessions (user_id, jwt) VALUES ($1, $2)`

const getByUserSQL = `
SELECT user_id, jwt
FROM sessions
WHERE user_id = $1
LIMIT 1`

// CreateSession replaces every session of userID with one carrying token.
// Concurrent calls for the same user leave exactly one session.
func (r *Repo) CreateSession(ctx context.Context, userID, token string) (bool, error) {
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := r.tx.Querier(ctx)
		if _, err := q.Exec(ctx, lockUserSQL, userID); err != nil {
			return err
		}
		if _, err := q.Exec(ctx, deleteByUserSQL, userID); err != nil {
			return err
		}
		_, err := q.Exec(ctx, insertSQL, userID, token)
		return err
	})
	if err != nil {
		return false, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "session", userID))
	}

	return true, nil
}

// GetSession returns the session of userID, or nil if there is none.
func (r *Repo) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	var s domain.Session
	err := r.tx.Querier(ctx).QueryRow(ctx, getByUserSQL, userID).Scan(&s.UserID, &s.Token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "session", userID))
	}

	return &s, nil
}

// DeleteUserSessions removes every session of userID.
func (r *Repo) DeleteUserSessions(ctx context.Context, userID string) (bool, error) {
	if _, err := r.tx.Querier(ctx).Exec(ctx, deleteByUserSQL, userID); err != nil {
		return false, postgres.Fail(domain.ErrInvalidOperation, postgres.MapError(err, "session", userID))
	}
	return true, nil
}

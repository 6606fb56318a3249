package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// durableCommitSQL makes COMMIT wait until the synchronous standbys have
// applied the transaction. With synchronous_standby_names set to an
// ANY n (...) quorum this is a majority write; on a server without standbys
// it degrades to a local flush.
const durableCommitSQL = `SET LOCAL synchronous_commit TO 'remote_apply'`

// TxManager owns the pool and hands repositories either the pool or the
// transaction carried in context. Nested RunInTx calls are NOT supported:
// calling RunInTx inside a RunInTx callback creates a second independent
// transaction.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx executes fn within a Read Committed transaction.
// On success: commits.
// On error from fn: rolls back and returns the error.
// On panic from fn: rolls back and re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, false, fn)
}

// RunDurable is RunInTx whose commit returns only once the write is
// acknowledged by the synchronous standby quorum.
func (m *TxManager) RunDurable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, true, fn)
}

func (m *TxManager) run(ctx context.Context, durable bool, fn func(ctx context.Context) error) (err error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if durable {
		if _, err := tx.Exec(ctx, durableCommitSQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set synchronous_commit: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

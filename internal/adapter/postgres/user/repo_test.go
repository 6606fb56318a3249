package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/mflix-backend/internal/domain"
)

//go:generate moq -out session_deleter_mock_test.go -pkg user . sessionDeleter

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okSessions() *sessionDeleterMock {
	return &sessionDeleterMock{
		DeleteUserSessionsFunc: func(context.Context, string) (bool, error) { return true, nil },
	}
}

// closedPool returns a pool that has already been closed, so every
// operation fails without a server.
func closedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	pool.Close()

	return pool
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8] + "@example.com"
}

// ---------------------------------------------------------------------------
// Failure handling (no database required)
// ---------------------------------------------------------------------------

func TestRepo_DeleteUser_SessionCleanupFails(t *testing.T) {
	t.Parallel()

	sessions := &sessionDeleterMock{
		DeleteUserSessionsFunc: func(context.Context, string) (bool, error) {
			return false, errors.New("sessions unavailable")
		},
	}
	repo := New(discardLogger(), closedPool(t), sessions)

	assert.False(t, repo.DeleteUser(context.Background(), "ned@example.com"))
	require.Len(t, sessions.DeleteUserSessionsCalls(), 1)
	assert.Equal(t, "ned@example.com", sessions.DeleteUserSessionsCalls()[0].UserID)
}

func TestRepo_DeleteUser_StorageFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	sessions := okSessions()
	repo := New(discardLogger(), closedPool(t), sessions)

	assert.NotPanics(t, func() {
		assert.False(t, repo.DeleteUser(context.Background(), "ned@example.com"))
	})
	assert.Len(t, sessions.DeleteUserSessionsCalls(), 1)
}

func TestRepo_UpdateUserPreferences_StorageFailureSurfaces(t *testing.T) {
	t.Parallel()

	repo := New(discardLogger(), closedPool(t), okSessions())

	ok, err := repo.UpdateUserPreferences(context.Background(), "ned@example.com", domain.Preferences{"x": 1})

	require.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.False(t, ok)
}

func TestRepo_UpdateUserPreferences_NilSkipsStorage(t *testing.T) {
	t.Parallel()

	repo := New(discardLogger(), closedPool(t), okSessions())

	ok, err := repo.UpdateUserPreferences(context.Background(), "ned@example.com", nil)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepo_AddUser_StorageFailure(t *testing.T) {
	t.Parallel()

	repo := New(discardLogger(), closedPool(t), okSessions())

	ok, err := repo.AddUser(context.Background(), &domain.User{Email: "ned@example.com"})

	require.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

func TestRepo_AddUser_PreferencesRoundTrip(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, false)
	ctx := context.Background()

	repo := New(discardLogger(), pool, okSessions())
	email := uniqueEmail("prefs")

	_, err := repo.AddUser(ctx, &domain.User{
		Name:           "Sansa",
		Email:          email,
		HashedPassword: "hash",
		Preferences:    domain.Preferences{"favorite_fruit": "lemon cakes", "nested": map[string]any{"a": "b"}},
	})
	require.NoError(t, err)

	var password string
	require.NoError(t, pool.QueryRow(ctx, `SELECT password FROM users WHERE email = $1`, email).Scan(&password))
	assert.Equal(t, "hash", password)

	got, err := repo.GetUser(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lemon cakes", got.Preferences["favorite_fruit"])
	nested, ok := got.Preferences["nested"].(map[string]any)
	require.True(t, ok, "nested preferences should decode as a map, got %T", got.Preferences["nested"])
	assert.Equal(t, "b", nested["a"])
}

func TestRepo_AddUser_NilPreferencesStoredAsNull(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, false)
	ctx := context.Background()

	repo := New(discardLogger(), pool, okSessions())
	email := uniqueEmail("null")

	_, err := repo.AddUser(ctx, &domain.User{Email: email})
	require.NoError(t, err)

	var isNull bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT preferences IS NULL FROM users WHERE email = $1`, email).Scan(&isNull))
	assert.True(t, isNull)

	got, err := repo.GetUser(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, got.Preferences)
}

func TestRepo_AddUser_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, false)
	ctx := context.Background()

	repo := New(discardLogger(), pool, okSessions())
	email := uniqueEmail("race")

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AddUser(ctx, &domain.User{Email: email})
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrDuplicateEntity)
				return
			}
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = $1`, email).Scan(&n))
	assert.Equal(t, 1, n)
}

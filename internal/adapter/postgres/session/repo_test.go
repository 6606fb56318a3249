package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres/session"
	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/mflix-backend/internal/domain"
)

func TestRepo_CreateSession_RemovesEveryStaleSession(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, false)
	ctx := context.Background()
	repo := session.New(pool)
	userID := "multi-" + uuid.New().String()[:8]

	// Two leftovers from an earlier race.
	_, err := pool.Exec(ctx,
		`INSERT INTO sessions (user_id, jwt) VALUES ($1, 'stale-1'), ($1, 'stale-2')`, userID)
	require.NoError(t, err)

	ok, err := repo.CreateSession(ctx, userID, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID).Scan(&n))
	assert.Equal(t, 1, n)

	got, err := repo.GetSession(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh", got.Token)
}

func TestRepo_CreateSession_ConcurrentLeavesOneRow(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, false)
	ctx := context.Background()
	repo := session.New(pool)
	userID := "race-" + uuid.New().String()[:8]

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateSession(ctx, userID, uuid.NewString())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The advisory lock makes delete+insert atomic per user.
	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRepo_CreateSession_UniqueTokenGuard(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, true)
	ctx := context.Background()
	repo := session.New(pool)

	_, err := repo.CreateSession(ctx, "u1-"+uuid.New().String()[:8], "same-token")
	require.NoError(t, err)

	ok, err := repo.CreateSession(ctx, "u2-"+uuid.New().String()[:8], "same-token")
	require.ErrorIs(t, err, domain.ErrDuplicateEntity)
	assert.False(t, ok)
}

func TestRepo_CreateSession_SameUserSameTokenWithGuard(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t, true)
	ctx := context.Background()
	repo := session.New(pool)
	userID := "again-" + uuid.New().String()[:8]

	_, err := repo.CreateSession(ctx, userID, "tok")
	require.NoError(t, err)

	ok, err := repo.CreateSession(ctx, userID, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}

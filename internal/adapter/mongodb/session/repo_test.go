package session_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/session"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/testhelper"
	"github.com/heartmarshall/mflix-backend/internal/domain"
)

func TestRepo_CreateSession_RemovesEveryStaleSession(t *testing.T) {
	t.Parallel()
	db := testhelper.SetupTestDB(t, mongodb.IndexOptions{})
	ctx := context.Background()
	repo := session.New(db)
	userID := "multi-" + uuid.New().String()[:8]

	// Two leftovers from an earlier race.
	_, err := db.Collection("sessions").InsertMany(ctx, []any{
		bson.D{{Key: "user_id", Value: userID}, {Key: "jwt", Value: "stale-1"}},
		bson.D{{Key: "user_id", Value: userID}, {Key: "jwt", Value: "stale-2"}},
	})
	require.NoError(t, err)

	ok, err := repo.CreateSession(ctx, userID, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := db.Collection("sessions").CountDocuments(ctx, bson.D{{Key: "user_id", Value: userID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetSession(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh", got.Token)
}

func TestRepo_CreateSession_SharedTokenAllowedByDefault(t *testing.T) {
	t.Parallel()
	db := testhelper.SetupTestDB(t, mongodb.IndexOptions{})
	ctx := context.Background()
	repo := session.New(db)

	_, err := repo.CreateSession(ctx, "u1-"+uuid.New().String()[:8], "same-token")
	require.NoError(t, err)
	_, err = repo.CreateSession(ctx, "u2-"+uuid.New().String()[:8], "same-token")
	require.NoError(t, err)
}

func TestRepo_CreateSession_UniqueTokenGuard(t *testing.T) {
	t.Parallel()
	db := testhelper.SetupTestDB(t, mongodb.IndexOptions{UniqueSessionToken: true})
	ctx := context.Background()
	repo := session.New(db)

	_, err := repo.CreateSession(ctx, "u1-"+uuid.New().String()[:8], "same-token")
	require.NoError(t, err)

	ok, err := repo.CreateSession(ctx, "u2-"+uuid.New().String()[:8], "same-token")
	require.ErrorIs(t, err, domain.ErrDuplicateEntity)
	assert.False(t, ok)
}

func TestRepo_CreateSession_SameUserSameTokenWithGuard(t *testing.T) {
	t.Parallel()
	db := testhelper.SetupTestDB(t, mongodb.IndexOptions{UniqueSessionToken: true})
	ctx := context.Background()
	repo := session.New(db)
	userID := "again-" + uuid.New().String()[:8]

	_, err := repo.CreateSession(ctx, userID, "tok")
	require.NoError(t, err)

	// The old session is removed before the insert, so re-login with the
	// same token does not collide.
	ok, err := repo.CreateSession(ctx, userID, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}

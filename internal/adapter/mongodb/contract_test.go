package mongodb_test

import (
	"io"
	"log/slog"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/comment"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/session"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/testhelper"
	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/user"
	"github.com/heartmarshall/mflix-backend/internal/store"
	"github.com/heartmarshall/mflix-backend/internal/store/storetest"
)

func TestStoreContract(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storetest.Run(t, storetest.Backend{
		NewStores: func(t *testing.T) *store.Stores {
			db := testhelper.SetupTestDB(t, mongodb.IndexOptions{})
			sessions := session.New(db)
			return store.NewStores(user.New(logger, db, sessions), sessions, comment.New(db))
		},
		MissingCommentID: primitive.NewObjectID().Hex(),
	})
}

// Package testhelper starts a throwaway MongoDB replica set for integration
// tests.
package testhelper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	"github.com/heartmarshall/mflix-backend/internal/config"
)

const replicaSet = "rs0"

var (
	once      sync.Once
	sharedURI string
	initErr   error
)

// SetupTestDB starts a shared single-member replica set (once for the entire
// test run) and returns a freshly named database with indexes in place.
// Majority read and write concerns are honored by a one-member replica set.
// The database is dropped and the client disconnected via t.Cleanup.
func SetupTestDB(t *testing.T, opts mongodb.IndexOptions) *mongo.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("testhelper: MongoDB container skipped in -short mode")
	}

	once.Do(func() {
		sharedURI, initErr = startReplicaSet()
	})
	if initErr != nil {
		t.Fatalf("testhelper: failed to setup test MongoDB: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongodb.NewClient(ctx, config.MongoConfig{URI: sharedURI})
	if err != nil {
		t.Fatalf("testhelper: failed to connect: %v", err)
	}

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	db := client.Database(name)

	if err := mongodb.EnsureIndexes(ctx, db, opts); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("testhelper: failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// URI returns the connection string of the shared replica set, starting it
// if needed. Callers that open their own client use it.
func URI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("testhelper: MongoDB container skipped in -short mode")
	}

	once.Do(func() {
		sharedURI, initErr = startReplicaSet()
	})
	if initErr != nil {
		t.Fatalf("testhelper: failed to setup test MongoDB: %v", initErr)
	}

	return sharedURI
}

func startReplicaSet() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		Cmd:          []string{"--replSet", replicaSet, "--bind_ip_all"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	initiate := fmt.Sprintf("rs.initiate({_id: %q, members: [{_id: 0, host: 'localhost:27017'}]})", replicaSet)
	code, _, err := container.Exec(ctx, []string{"mongosh", "--quiet", "--eval", initiate})
	if err != nil {
		return "", fmt.Errorf("rs.initiate: %w", err)
	}
	if code != 0 {
		return "", fmt.Errorf("rs.initiate: exit code %d", code)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	// The member advertises localhost:27017, which is unreachable from the
	// host, so topology discovery must be bypassed.
	uri := fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port())

	if err := waitForPrimary(ctx, uri); err != nil {
		return "", err
	}

	return uri, nil
}

func waitForPrimary(ctx context.Context, uri string) error {
	client, err := mongo.Connect(ctx, mongodb.ClientOptions(config.MongoConfig{URI: uri}))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	for {
		var hello struct {
			IsWritablePrimary bool `bson:"isWritablePrimary"`
		}
		err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
		if err == nil && hello.IsWritablePrimary {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for primary: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

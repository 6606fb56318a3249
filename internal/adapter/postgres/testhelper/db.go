package testhelper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres"
)

const templateDB = "testdb"

var (
	once     sync.Once
	baseDSN  string
	admin    *pgxpool.Pool
	initErr  error
	createMu sync.Mutex
)

// SetupTestDB starts a shared PostgreSQL container (once for the entire test run),
// applies goose migrations to a template database, and returns a pool connected
// to a fresh copy of it. Every call gets its own database so aggregate queries
// never see rows from other tests. The pool is closed and the database dropped
// via t.Cleanup; the container lives until the process exits.
func SetupTestDB(t *testing.T, uniqueSessionToken bool) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in -short mode")
	}

	once.Do(func() {
		baseDSN, initErr = startContainerAndMigrate()
		if initErr == nil {
			admin, initErr = pgxpool.New(context.Background(), dsnFor("postgres"))
		}
	})
	if initErr != nil {
		t.Fatalf("testhelper: failed to setup test DB: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	// CREATE DATABASE ... TEMPLATE fails while another session reads the template.
	createMu.Lock()
	_, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateDB))
	createMu.Unlock()
	if err != nil {
		t.Fatalf("testhelper: create database %s: %v", name, err)
	}

	pool, err := pgxpool.New(ctx, dsnFor(name))
	if err != nil {
		t.Fatalf("testhelper: failed to create pgxpool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = admin.Exec(dropCtx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name))
	})

	if err := postgres.EnsureIndexes(ctx, pool, uniqueSessionToken); err != nil {
		t.Fatalf("testhelper: ensure indexes: %v", err)
	}

	return pool
}

func dsnFor(database string) string {
	return strings.Replace(baseDSN, "/"+templateDB+"?", "/"+database+"?", 1)
}

func startContainerAndMigrate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       templateDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/%s?sslmode=disable", host, port.Port(), templateDB)

	// goose requires *sql.DB. The handle is closed before any test clones the template.
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return "", fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return "", fmt.Errorf("db ping: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsPath()))
	if err != nil {
		return "", fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return "", fmt.Errorf("goose up: %w", err)
	}

	return dsn, nil
}

// migrationsPath resolves migrations/postgres relative to this source file.
func migrationsPath() string {
	_, currentFile, _, _ := runtime.Caller(0)
	// currentFile is <root>/internal/adapter/postgres/testhelper/db.go
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "..", "migrations", "postgres")
}

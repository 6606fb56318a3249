package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/heartmarshall/mflix-backend/internal/adapter/mongodb"
	mongocomment "github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/comment"
	mongosession "github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/session"
	mongouser "github.com/heartmarshall/mflix-backend/internal/adapter/mongodb/user"
	"github.com/heartmarshall/mflix-backend/internal/adapter/postgres"
	pgcomment "github.com/heartmarshall/mflix-backend/internal/adapter/postgres/comment"
	pgsession "github.com/heartmarshall/mflix-backend/internal/adapter/postgres/session"
	pguser "github.com/heartmarshall/mflix-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/mflix-backend/internal/adapter/redis"
	redissession "github.com/heartmarshall/mflix-backend/internal/adapter/redis/session"
	"github.com/heartmarshall/mflix-backend/internal/config"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// backends opens each storage connection at most once and remembers how to
// release it.
type backends struct {
	cfg     *config.Config
	logger  *slog.Logger
	mongoDB *mongo.Database
	pgPool  *pgxpool.Pool
	closers []func(context.Context) error
}

// OpenStores connects the backends selected by cfg.Storage and returns the
// assembled stores. The user store cascades into whichever session store is
// configured. On failure every connection opened so far is closed.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Stores, error) {
	b := &backends{cfg: cfg, logger: logger}

	stores, err := b.open(ctx)
	if err != nil {
		_ = store.NewStores(nil, nil, nil, b.closers...).Close(ctx)
		return nil, err
	}

	return stores, nil
}

func (b *backends) open(ctx context.Context) (*store.Stores, error) {
	sessions, err := b.sessions(ctx, b.cfg.Storage.EffectiveSessionDriver())
	if err != nil {
		return nil, err
	}

	switch b.cfg.Storage.Driver {
	case config.DriverMongo:
		db, err := b.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewStores(mongouser.New(b.logger, db, sessions), sessions, mongocomment.New(db), b.closers...), nil
	case config.DriverPostgres:
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewStores(pguser.New(b.logger, pool, sessions), sessions, pgcomment.New(pool), b.closers...), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", b.cfg.Storage.Driver)
	}
}

func (b *backends) sessions(ctx context.Context, driver string) (store.SessionStore, error) {
	switch driver {
	case config.DriverMongo:
		db, err := b.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return mongosession.New(db), nil
	case config.DriverPostgres:
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return pgsession.New(pool), nil
	case config.DriverRedis:
		client, err := redis.NewClient(ctx, b.cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		return redissession.NewStore(client, b.cfg.Redis.KeyPrefix, b.cfg.Redis.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", driver)
	}
}

func (b *backends) mongo(ctx context.Context) (*mongo.Database, error) {
	if b.mongoDB != nil {
		return b.mongoDB, nil
	}

	client, err := mongodb.NewClient(ctx, b.cfg.Mongo)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, client.Disconnect)

	db := client.Database(b.cfg.Mongo.Database)
	opts := mongodb.IndexOptions{UniqueSessionToken: b.cfg.Storage.UniqueSessionToken}
	if err := mongodb.EnsureIndexes(ctx, db, opts); err != nil {
		return nil, err
	}

	b.mongoDB = db
	return db, nil
}

func (b *backends) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pgPool != nil {
		return b.pgPool, nil
	}

	pool, err := postgres.NewPool(ctx, b.cfg.Database)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	if err := postgres.EnsureIndexes(ctx, pool, b.cfg.Storage.UniqueSessionToken); err != nil {
		return nil, err
	}

	b.pgPool = pool
	return pool, nil
}

package config

import (
	"fmt"
	"slices"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if !slices.Contains([]string{DriverMongo, DriverPostgres}, c.Storage.Driver) {
		return fmt.Errorf("storage.driver must be %q or %q (got %q)", DriverMongo, DriverPostgres, c.Storage.Driver)
	}

	sessions := c.Storage.EffectiveSessionDriver()
	if !slices.Contains([]string{DriverMongo, DriverPostgres, DriverRedis}, sessions) {
		return fmt.Errorf("storage.session_driver must be %q, %q or %q (got %q)", DriverMongo, DriverPostgres, DriverRedis, sessions)
	}

	for _, d := range []string{c.Storage.Driver, sessions} {
		if err := c.validateDriver(d); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDriver(driver string) error {
	switch driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the %s driver", driver)
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required for the %s driver", driver)
		}
		if c.Mongo.MinPoolSize > c.Mongo.MaxPoolSize {
			return fmt.Errorf("mongo.min_pool_size (%d) exceeds max_pool_size (%d)", c.Mongo.MinPoolSize, c.Mongo.MaxPoolSize)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", driver)
		}
		if c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the %s driver", driver)
		}
		if c.Redis.SessionTTL < 0 {
			return fmt.Errorf("redis.session_ttl must be >= 0 (got %v)", c.Redis.SessionTTL)
		}
	}
	return nil
}

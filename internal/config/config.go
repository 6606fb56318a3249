package config

import "time"

// Storage drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the root application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig selects the backends the stores run on.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	// SessionDriver overrides Driver for the session store. Empty means
	// sessions live next to users and comments.
	SessionDriver string `yaml:"session_driver" env:"STORAGE_SESSION_DRIVER"`
	// UniqueSessionToken adds a uniqueness guard on session tokens.
	UniqueSessionToken bool `yaml:"unique_session_token" env:"STORAGE_UNIQUE_SESSION_TOKEN" env-default:"false"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI                    string        `yaml:"uri"                      env:"MONGO_URI"`
	Database               string        `yaml:"database"                 env:"MONGO_DATABASE"                 env-default:"sample_mflix"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout"          env:"MONGO_CONNECT_TIMEOUT"          env-default:"10s"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env:"MONGO_SERVER_SELECTION_TIMEOUT" env-default:"5s"`
	MaxPoolSize            uint64        `yaml:"max_pool_size"            env:"MONGO_MAX_POOL_SIZE"            env-default:"50"`
	MinPoolSize            uint64        `yaml:"min_pool_size"            env:"MONGO_MIN_POOL_SIZE"            env-default:"0"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// RedisConfig holds Redis settings for the session store.
type RedisConfig struct {
	Addr      string `yaml:"addr"       env:"REDIS_ADDR"       env-default:"localhost:6379"`
	Password  string `yaml:"password"   env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db"         env:"REDIS_DB"         env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"mflix:session:"`
	// SessionTTL expires idle sessions; zero keeps them until logout.
	SessionTTL time.Duration `yaml:"session_ttl" env:"REDIS_SESSION_TTL" env-default:"0s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// EffectiveSessionDriver returns the backend the session store runs on.
func (s StorageConfig) EffectiveSessionDriver() string {
	if s.SessionDriver == "" {
		return s.Driver
	}
	return s.SessionDriver
}

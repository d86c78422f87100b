package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	EnvProduction = "production"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	AppEnv                string        `mapstructure:"APP_ENV"`
	HTTPHost              string        `mapstructure:"HTTP_HOST"`
	HTTPPort              string        `mapstructure:"HTTP_PORT"`
	HTTPReadHeaderTimeout time.Duration `mapstructure:"HTTP_READ_HEADER_TIMEOUT"`
	HTTPShutdownTimeout   time.Duration `mapstructure:"HTTP_SHUTDOWN_TIMEOUT"`
	HTTPMaxBodyBytes      int64         `mapstructure:"HTTP_MAX_BODY_BYTES"`
	StoreDriver           string        `mapstructure:"STORE_DRIVER"`
	MongoURI              string        `mapstructure:"MONGO_URI"`
	MongoDatabase         string        `mapstructure:"MONGO_DATABASE"`
	PostgresDSN           string        `mapstructure:"POSTGRES_DSN"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	LockTTL               time.Duration `mapstructure:"LOCK_TTL"`
	LockWait              time.Duration `mapstructure:"LOCK_WAIT"`
	SeedDemoData          bool          `mapstructure:"SEED_DEMO_DATA"`
}

var defaults = map[string]any{
	"APP_ENV":                  "development",
	"HTTP_HOST":                "localhost",
	"HTTP_PORT":                "8092",
	"HTTP_READ_HEADER_TIMEOUT": "20s",
	"HTTP_SHUTDOWN_TIMEOUT":    "4s",
	"HTTP_MAX_BODY_BYTES":      1 << 20,
	"STORE_DRIVER":             DriverMemory,
	"MONGO_URI":                "mongodb://localhost:27017",
	"MONGO_DATABASE":           "arisync",
	"POSTGRES_DSN":             "",
	"REDIS_URL":                "",
	"LOCK_TTL":                 "30s",
	"LOCK_WAIT":                "2s",
	"SEED_DEMO_DATA":           false,
}

// Load reads config.env from the given paths when present, then the environment.
// Environment variables win over the file.
func Load(paths ...string) (Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	conf.StoreDriver = strings.ToLower(strings.TrimSpace(conf.StoreDriver))

	if err := conf.validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("%w: MONGO_URI and MONGO_DATABASE are required for the mongo driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}

	if c.HTTPPort == "" {
		return fmt.Errorf("%w: HTTP_PORT is required", ErrInvalidConfig)
	}

	if c.Production() && c.SeedDemoData {
		return fmt.Errorf("%w: SEED_DEMO_DATA must be off in production", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) Production() bool {
	return c.AppEnv == EnvProduction
}

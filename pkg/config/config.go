package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "lenshaus"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "LENSHAUS_APP_ENV"
	EnvAPIBaseURL = "LENSHAUS_API_BASE_URL"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Storage StorageConfig
	Cart    CartConfig
	Rx      RxConfig
	Notify  NotifyConfig
	Catalog CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LENSHAUS_APP_ENV" default:"development"`
	LogLevel     string `envconfig:"LENSHAUS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LENSHAUS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL        string        `envconfig:"LENSHAUS_API_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"LENSHAUS_API_REQUEST_TIMEOUT" default:"15s"`
}

// StorageConfig selects the local persistence backend. The sqlite path plays
// the role browser storage plays in the web storefront.
type StorageConfig struct {
	Driver     string        `envconfig:"LENSHAUS_STORAGE_DRIVER" default:"sqlite"`
	SQLitePath string        `envconfig:"LENSHAUS_STORAGE_SQLITE_PATH" default:"lenshaus.db"`
	RedisURL   string        `envconfig:"LENSHAUS_STORAGE_REDIS_URL"`
	RedisDB    int           `envconfig:"LENSHAUS_STORAGE_REDIS_DB" default:"0"`
	RedisDial  time.Duration `envconfig:"LENSHAUS_STORAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
}

const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverMemory:
		return nil
	case StorageDriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("sqlite storage requires LENSHAUS_STORAGE_SQLITE_PATH")
		}
		return nil
	case StorageDriverRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("redis storage requires LENSHAUS_STORAGE_REDIS_URL")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
}

type CartConfig struct {
	Currency string `envconfig:"LENSHAUS_CART_CURRENCY" default:"USD"`
}

type RxConfig struct {
	MaxFileBytes int64  `envconfig:"LENSHAUS_RX_MAX_FILE_BYTES" default:"2621440"`
	KeyPrefix    string `envconfig:"LENSHAUS_RX_KEY_PREFIX" default:"rx"`
}

type NotifyConfig struct {
	DisplayDuration time.Duration `envconfig:"LENSHAUS_NOTIFY_DISPLAY_DURATION" default:"4s"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"LENSHAUS_CATALOG_CACHE_TTL" default:"5m"`
}

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/lenshaus/storefront-core/pkg/config"
	"github.com/lenshaus/storefront-core/pkg/logger"
)

// Open selects and boots the backend named by the configuration.
func Open(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logg)
	case config.StorageDriverRedis:
		return OpenRedis(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

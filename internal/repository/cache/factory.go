package cache

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

// NewTileStore builds the backend selected by cfg.Backend.
func NewTileStore(cfg config.Cache, l logger.Logger) (TileStore, error) {
	switch cfg.Backend {
	case "filesystem", "":
		return NewFilesystemStore(cfg.Root, l)
	case "memory":
		l.Warn("memory tile store selected, cached tiles are lost on restart")
		return NewMapStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, l)
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, l)
	case "badger":
		return NewBadgerStore(cfg.BadgerDir, l)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: filesystem, memory, sqlite, redis, badger)", cfg.Backend)
	}
}

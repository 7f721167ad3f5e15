package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to redis. Entries are written without expiry.
func NewRedisStore(cfg RedisConfig, l logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l.Info("redis tile store initialized", "addr", cfg.Addr, "db", cfg.DB)

	return &RedisStore{
		client: client,
		logger: l,
	}, nil
}

var _ TileStore = (*RedisStore)(nil)

func (c *RedisStore) keyFor(k domain.TileKey) string {
	return fmt.Sprintf("tile:%s:%d:%d:%d", k.Layer, k.Z, k.X, k.Y)
}

func (c *RedisStore) Has(ctx context.Context, k domain.TileKey) bool {
	n, err := c.client.Exists(ctx, c.keyFor(k)).Result()
	if err != nil {
		c.logger.Error("redis tile exists failed", "tile", k.String(), "error", err)
		return false
	}
	return n > 0
}

func (c *RedisStore) Get(ctx context.Context, k domain.TileKey) ([]byte, error) {
	data, err := c.client.Get(ctx, c.keyFor(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("tile %s: %w", k, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: redis get error: %w", domain.ErrIO, err)
	}

	return data, nil
}

func (c *RedisStore) Put(ctx context.Context, k domain.TileKey, v []byte) error {
	if err := c.client.Set(ctx, c.keyFor(k), v, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set error: %w", domain.ErrIO, err)
	}

	return nil
}

func (c *RedisStore) Close() error {
	return c.client.Close()
}

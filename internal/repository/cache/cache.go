package cache

import (
	"context"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
)

// TileStore is durable byte storage keyed by tile.
//
// Has reports absence as false, never as an error. Get wraps domain.ErrNotFound
// for absent keys and domain.ErrIO for backend failures. Put must never expose
// a partially written value to a concurrent Get.
type TileStore interface {
	Has(ctx context.Context, k domain.TileKey) bool
	Get(ctx context.Context, k domain.TileKey) ([]byte, error)
	Put(ctx context.Context, k domain.TileKey, v []byte) error
	Close() error
}

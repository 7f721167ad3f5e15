package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
)

type MapStore struct {
	m *TypedSyncMap
}

type TypedSyncMap struct {
	m sync.Map
}

func (c *TypedSyncMap) Load(k domain.TileKey) ([]byte, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, false
	}
	return v.([]byte), exists
}

func (c *TypedSyncMap) Store(k domain.TileKey, v []byte) {
	c.m.Store(k, v)
}

func (c *TypedSyncMap) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func NewMapStore() *MapStore {
	return &MapStore{
		m: &TypedSyncMap{},
	}
}

var _ TileStore = (*MapStore)(nil)

func (c *MapStore) Has(_ context.Context, k domain.TileKey) bool {
	_, exists := c.m.Load(k)
	return exists
}

func (c *MapStore) Get(_ context.Context, k domain.TileKey) ([]byte, error) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, fmt.Errorf("tile %s: %w", k, domain.ErrNotFound)
	}
	return v, nil
}

func (c *MapStore) Put(_ context.Context, k domain.TileKey, v []byte) error {
	c.m.Store(k, append([]byte(nil), v...))
	return nil
}

// Len counts stored tiles.
func (c *MapStore) Len() int {
	return c.m.Len()
}

func (c *MapStore) Close() error {
	return nil
}

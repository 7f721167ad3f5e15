package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

// NewBadgerStore opens a badger database in dir. An empty dir keeps it in memory.
func NewBadgerStore(dir string, l logger.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}

	l.Info("badger tile store initialized", "dir", dir)

	return &BadgerStore{
		db:     db,
		logger: l,
	}, nil
}

var _ TileStore = (*BadgerStore)(nil)

func (c *BadgerStore) keyFor(k domain.TileKey) []byte {
	return []byte("tile:" + k.String())
}

func (c *BadgerStore) Has(_ context.Context, k domain.TileKey) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(c.keyFor(k))
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Error("badger tile lookup failed", "tile", k.String(), "error", err)
		}
		return false
	}
	return true
}

func (c *BadgerStore) Get(_ context.Context, k domain.TileKey) ([]byte, error) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.keyFor(k))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("tile %s: %w", k, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: badger get %s: %w", domain.ErrIO, k, err)
	}
	return data, nil
}

func (c *BadgerStore) Put(_ context.Context, k domain.TileKey, v []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.keyFor(k), v)
	})
	if err != nil {
		return fmt.Errorf("%w: badger put %s: %w", domain.ErrIO, k, err)
	}
	return nil
}

func (c *BadgerStore) Close() error {
	return c.db.Close()
}

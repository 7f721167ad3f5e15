package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

// FilesystemStore keeps tiles at {root}/{layer}/{z}/{x}/{y}.png.
type FilesystemStore struct {
	root   string
	logger logger.Logger
}

var _ TileStore = (*FilesystemStore)(nil)

func NewFilesystemStore(root string, l logger.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create cache root %s: %w", domain.ErrIO, root, err)
	}

	l.Info("filesystem tile store initialized", "root", root)

	return &FilesystemStore{
		root:   root,
		logger: l,
	}, nil
}

func (c *FilesystemStore) Root() string {
	return c.root
}

func (c *FilesystemStore) Has(_ context.Context, k domain.TileKey) bool {
	info, err := os.Stat(k.Path(c.root))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("filesystem tile stat failed", "tile", k.String(), "error", err)
		}
		return false
	}
	return info.Mode().IsRegular()
}

func (c *FilesystemStore) Get(_ context.Context, k domain.TileKey) ([]byte, error) {
	path := k.Path(c.root)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("tile %s: %w", k, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIO, path, err)
	}

	return content, nil
}

// Put writes to a temp file in the target directory and renames it into place,
// so readers only ever see a missing file or a complete one.
func (c *FilesystemStore) Put(_ context.Context, k domain.TileKey, v []byte) error {
	path := k.Path(c.root)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", domain.ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %w", domain.ErrIO, dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(v); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %w", domain.ErrIO, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: chmod %s: %w", domain.ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %w", domain.ErrIO, path, err)
	}

	c.logger.Debug("filesystem tile stored", "tile", k.String(), "size", len(v))
	return nil
}

func (c *FilesystemStore) Close() error {
	return nil
}

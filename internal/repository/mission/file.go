package mission

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

// FileStore keeps one pretty-printed JSON array of points per session.
type FileStore struct {
	dir    string
	logger logger.Logger
}

func NewFileStore(dir string, l logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create missions dir %s: %w", domain.ErrIO, dir, err)
	}

	l.Info("mission file store initialized", "dir", dir)

	return &FileStore{
		dir:    dir,
		logger: l,
	}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Load returns the raw session file. A missing file yields (nil, nil).
func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIO, path, err)
	}
	return data, nil
}

// Decode parses session bytes. Empty input is an empty session.
func Decode(data []byte) ([]domain.GeoPoint, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var points []domain.GeoPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Save replaces the session file atomically. On failure the previous
// content is left as it was.
func (s *FileStore) Save(_ context.Context, name string, points []domain.GeoPoint) error {
	if points == nil {
		points = []domain.GeoPoint{}
	}
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", name, err)
	}
	return s.writeAtomic(name, data)
}

// Backup copies unreadable session bytes next to the session file before they
// get overwritten.
func (s *FileStore) Backup(_ context.Context, name string, data []byte) (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%d", name, time.Now().UTC().UnixMilli())
	if err := s.writeAtomic(backup, data); err != nil {
		return "", err
	}
	return backup, nil
}

func (s *FileStore) writeAtomic(name string, data []byte) error {
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %w", domain.ErrIO, s.dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: sync %s: %w", domain.ErrIO, tmpPath, err)
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

	s.logger.Debug("mission session written", "file", name, "size", len(data))
	return nil
}

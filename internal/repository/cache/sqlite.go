package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens path as a sqlite database and applies the embedded migrations.
func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &SQLiteStore{
		db:     db,
		logger: l,
	}

	err = c.runMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}

	l.Info("sqlite tile store initialized", "path", path)

	return c, nil
}

func (c *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(c.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ TileStore = (*SQLiteStore)(nil)

func (c *SQLiteStore) Has(ctx context.Context, k domain.TileKey) bool {
	query := `SELECT 1
	FROM tile_cache
	WHERE layer = ? AND z = ? AND x = ? AND y = ?`

	var one int
	err := c.db.QueryRowContext(ctx, query, k.Layer.String(), k.Z, k.X, k.Y).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Error("sqlite tile lookup failed", "tile", k.String(), "error", err)
		}
		return false
	}
	return true
}

func (c *SQLiteStore) Get(ctx context.Context, k domain.TileKey) ([]byte, error) {
	c.logger.Debug("sqlite tile get", "tile", k.String())

	query := `SELECT tile_data
	FROM tile_cache
	WHERE layer = ? AND z = ? AND x = ? AND y = ?`

	var tileData []byte
	err := c.db.QueryRowContext(ctx, query, k.Layer.String(), k.Z, k.X, k.Y).Scan(&tileData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tile %s: %w", k, domain.ErrNotFound)
		}
		c.logger.Error("sqlite tile get failed", "tile", k.String(), "error", err)
		return nil, fmt.Errorf("%w: sqlite get %s: %w", domain.ErrIO, k, err)
	}

	return tileData, nil
}

func (c *SQLiteStore) Put(ctx context.Context, k domain.TileKey, v []byte) error {
	c.logger.Debug("sqlite tile put", "tile", k.String())

	query := `INSERT INTO tile_cache (layer, z, x, y, tile_data)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(layer, z, x, y) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := c.db.ExecContext(ctx, query, k.Layer.String(), k.Z, k.X, k.Y, v)
	if err != nil {
		c.logger.Error("sqlite tile put failed", "tile", k.String(), "error", err)
		return fmt.Errorf("%w: sqlite put %s: %w", domain.ErrIO, k, err)
	}

	return nil
}

func (c *SQLiteStore) Close() error {
	return c.db.Close()
}

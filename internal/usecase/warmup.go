package usecase

import (
	"context"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/metrics"
)

type TileGetter interface {
	GetTile(ctx context.Context, k domain.TileKey) ([]byte, TileSource, error)
}

type WarmupRange struct {
	Layer domain.Layer
	MinZ  uint32
	MaxZ  uint32
	MinX  uint32
	MaxX  uint32
	MinY  uint32
	MaxY  uint32
}

type WarmupReport struct {
	Tiles  int
	Failed int
}

// WarmupRangesFrom resolves configured layer names.
func WarmupRangesFrom(ranges config.WarmupRanges) ([]WarmupRange, error) {
	out := make([]WarmupRange, 0, len(ranges))
	for _, r := range ranges {
		layer, err := domain.ParseLayer(r.Layer)
		if err != nil {
			return nil, err
		}
		out = append(out, WarmupRange{
			Layer: layer,
			MinZ:  r.MinZ,
			MaxZ:  r.MaxZ,
			MinX:  r.MinX,
			MaxX:  r.MaxX,
			MinY:  r.MinY,
			MaxY:  r.MaxY,
		})
	}
	return out, nil
}

// WarmupScheduler pre-populates the cache through the same TileCache path
// live requests use, one tile at a time.
type WarmupScheduler struct {
	tiles  TileGetter
	ranges []WarmupRange
	logger logger.Logger
}

func NewWarmupScheduler(tiles TileGetter, ranges []WarmupRange, l logger.Logger) *WarmupScheduler {
	return &WarmupScheduler{
		tiles:  tiles,
		ranges: ranges,
		logger: l,
	}
}

// Run walks every range sequentially. A failed tile is logged and skipped.
// It returns early only when ctx is done.
func (s *WarmupScheduler) Run(ctx context.Context) WarmupReport {
	var report WarmupReport

	for _, r := range s.ranges {
		s.logger.Info("starting tile warmup", "layer", r.Layer.String(),
			"min_z", r.MinZ, "max_z", r.MaxZ,
			"min_x", r.MinX, "max_x", r.MaxX,
			"min_y", r.MinY, "max_y", r.MaxY)

		maxZ := r.MaxZ
		if maxZ > domain.MaxZoom {
			maxZ = domain.MaxZoom
		}

		for z := r.MinZ; z <= maxZ; z++ {
			n := uint64(1) << z
			for x := uint64(r.MinX); x <= uint64(r.MaxX) && x < n; x++ {
				for y := uint64(r.MinY); y <= uint64(r.MaxY) && y < n; y++ {
					if ctx.Err() != nil {
						s.logger.Warn("tile warmup interrupted", "tiles", report.Tiles, "failed", report.Failed)
						return report
					}

					k := domain.TileKey{Layer: r.Layer, Z: z, X: uint32(x), Y: uint32(y)}
					report.Tiles++
					if _, _, err := s.tiles.GetTile(ctx, k); err != nil {
						report.Failed++
						metrics.WarmupTiles.WithLabelValues(r.Layer.String(), "failed").Inc()
						s.logger.Warn("warmup tile failed", "tile", k.String(), "error", err)
						continue
					}
					metrics.WarmupTiles.WithLabelValues(r.Layer.String(), "ok").Inc()
				}
			}
		}

		s.logger.Info("tile warmup completed", "layer", r.Layer.String())
	}

	return report
}

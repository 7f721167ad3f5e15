package usecase

import (
	"context"
	"sync/atomic"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// TileFetcher downloads one tile from the imagery provider.
type TileFetcher interface {
	Fetch(ctx context.Context, k domain.TileKey) ([]byte, error)
}

// TileSource tells where the bytes of a response came from.
type TileSource string

const (
	SourceCache   TileSource = "cache"
	SourceNetwork TileSource = "network"
	SourceShared  TileSource = "shared"
)

type CacheStats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Fetches       int64 `json:"upstream_fetches"`
	FetchFailures int64 `json:"upstream_failures"`
	SharedWaits   int64 `json:"shared_waits"`
	StoreFailures int64 `json:"store_failures"`
}

// TileCacheUseCase serves tiles from the store and fills misses from upstream,
// with at most one upstream fetch in flight per tile.
type TileCacheUseCase struct {
	store   cache.TileStore
	fetcher TileFetcher
	group   singleflight.Group
	logger  logger.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	fetches       atomic.Int64
	fetchFailures atomic.Int64
	sharedWaits   atomic.Int64
	storeFailures atomic.Int64
}

func NewTileCacheUseCase(store cache.TileStore, fetcher TileFetcher, l logger.Logger) *TileCacheUseCase {
	return &TileCacheUseCase{
		store:   store,
		fetcher: fetcher,
		logger:  l,
	}
}

type fillResult struct {
	data   []byte
	source TileSource
}

// GetTile returns the tile bytes and where they came from.
//
// A hit is read straight from the store without touching in-flight tracking.
// On a miss, concurrent callers for the same key share a single fill: one
// upstream fetch, one store write, one outcome. A caller whose ctx ends while
// waiting gets ctx.Err(); the fill itself keeps running for the others and is
// bounded only by the fetcher's timeout.
func (uc *TileCacheUseCase) GetTile(ctx context.Context, k domain.TileKey) ([]byte, TileSource, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "TileCache.GetTile",
		trace.WithAttributes(
			attribute.String("tile.layer", k.Layer.String()),
			attribute.Int("tile.z", int(k.Z)),
			attribute.Int("tile.x", int(k.X)),
			attribute.Int("tile.y", int(k.Y)),
		),
	)
	defer span.End()

	layer := k.Layer.String()
	metrics.TileRequests.WithLabelValues(layer).Inc()

	if uc.store.Has(ctx, k) {
		data, err := uc.store.Get(ctx, k)
		if err == nil {
			uc.hits.Add(1)
			metrics.CacheHits.WithLabelValues(layer).Inc()
			span.SetAttributes(attribute.String("tile.source", string(SourceCache)))
			return data, SourceCache, nil
		}
		// fall through to a fill; the store entry is unreadable
		uc.logger.Warn("cached tile unreadable, refetching", "tile", k.String(), "error", err)
	}

	uc.misses.Add(1)
	metrics.CacheMisses.WithLabelValues(layer).Inc()

	fillCtx := context.WithoutCancel(ctx)
	// only the caller whose closure runs did the fetch; singleflight reports
	// Shared to every caller, the fetching one included
	var leader bool
	ch := uc.group.DoChan(k.String(), func() (any, error) {
		leader = true
		return uc.fill(fillCtx, k)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return nil, "", res.Err
		}
		r := res.Val.(fillResult)
		source := r.source
		if !leader && source == SourceNetwork {
			uc.sharedWaits.Add(1)
			metrics.InflightShared.Inc()
			source = SourceShared
		}
		span.SetAttributes(attribute.String("tile.source", string(source)))
		return r.data, source, nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "caller gave up waiting")
		return nil, "", ctx.Err()
	}
}

// fill runs once per in-flight key.
func (uc *TileCacheUseCase) fill(ctx context.Context, k domain.TileKey) (fillResult, error) {
	// A fill for this key may have completed between our Has check and
	// registering this one.
	if uc.store.Has(ctx, k) {
		if data, err := uc.store.Get(ctx, k); err == nil {
			return fillResult{data: data, source: SourceCache}, nil
		}
	}

	uc.fetches.Add(1)
	data, err := uc.fetcher.Fetch(ctx, k)
	if err != nil {
		uc.fetchFailures.Add(1)
		uc.logger.Error("upstream tile fetch failed", "tile", k.String(), "error", err)
		return fillResult{}, err
	}

	if err := uc.store.Put(ctx, k, data); err != nil {
		// availability over durability: still serve the fetched bytes
		uc.storeFailures.Add(1)
		metrics.CacheStoreErrors.Inc()
		uc.logger.Warn("failed to cache tile, serving uncached", "tile", k.String(), "error", err)
	} else {
		metrics.CacheStores.Inc()
		uc.logger.Info("cached tile", "tile", k.String(), "size", len(data))
	}

	return fillResult{data: data, source: SourceNetwork}, nil
}

func (uc *TileCacheUseCase) Stats() CacheStats {
	return CacheStats{
		Hits:          uc.hits.Load(),
		Misses:        uc.misses.Load(),
		Fetches:       uc.fetches.Load(),
		FetchFailures: uc.fetchFailures.Load(),
		SharedWaits:   uc.sharedWaits.Load(),
		StoreFailures: uc.storeFailures.Load(),
	}
}

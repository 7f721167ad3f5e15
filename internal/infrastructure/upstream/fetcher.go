package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

type Config struct {
	// URLTemplates holds one URL per layer with {z}, {x} and {y} placeholders.
	URLTemplates map[domain.Layer]string
	UserAgent    string
	Referer      string
	Timeout      time.Duration
	// RateLimit is requests per second across all layers; zero disables limiting.
	RateLimit float64
	RateBurst int
	Breaker   BreakerConfig
}

func ConfigFrom(cfg config.Upstream) Config {
	return Config{
		URLTemplates: map[domain.Layer]string{
			domain.LayerOSM:       cfg.OSMURL,
			domain.LayerSatellite: cfg.SatelliteURL,
		},
		UserAgent: cfg.UserAgent,
		Referer:   cfg.Referer,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Breaker: BreakerConfig{
			Enabled:      cfg.Breaker.Enabled,
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		},
	}
}

// Fetcher performs exactly one upstream GET per Fetch call. It never retries.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   map[domain.Layer]*gobreaker.CircuitBreaker[[]byte]
	logger     logger.Logger
}

func NewFetcher(cfg Config, l logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	f := &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breakers: make(map[domain.Layer]*gobreaker.CircuitBreaker[[]byte]),
		logger:   l,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.Breaker.Enabled {
		for _, layer := range domain.Layers {
			f.breakers[layer] = f.newBreaker("upstream-" + layer.String())
		}
	}

	return f
}

func (f *Fetcher) newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	bc := f.cfg.Breaker
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("upstream circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// URL expands the layer's template for the key.
func (f *Fetcher) URL(k domain.TileKey) (string, error) {
	tmpl, ok := f.cfg.URLTemplates[k.Layer]
	if !ok || tmpl == "" {
		return "", fmt.Errorf("%w: no upstream configured for layer %s", domain.ErrUpstreamUnavailable, k.Layer)
	}

	r := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(k.Z), 10),
		"{x}", strconv.FormatUint(uint64(k.X), 10),
		"{y}", strconv.FormatUint(uint64(k.Y), 10),
	)
	return r.Replace(tmpl), nil
}

// Fetch downloads the tile. Failures wrap domain.ErrUpstreamUnavailable or
// domain.ErrUpstreamTimeout; the whole call is bounded by the configured timeout.
func (f *Fetcher) Fetch(ctx context.Context, k domain.TileKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	layer := k.Layer.String()
	metrics.UpstreamRequests.WithLabelValues(layer).Inc()
	start := time.Now()

	var (
		data []byte
		err  error
	)
	if cb, ok := f.breakers[k.Layer]; ok {
		data, err = cb.Execute(func() ([]byte, error) {
			return f.fetch(ctx, k)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, cb.Name(), err)
		}
	} else {
		data, err = f.fetch(ctx, k)
	}

	metrics.UpstreamLatency.WithLabelValues(layer).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(layer, reason(err)).Inc()
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, k domain.TileKey) ([]byte, error) {
	url, err := f.URL(k)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, classify(ctx, fmt.Errorf("rate limiter: %w", err), true)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrUpstreamUnavailable, err)
	}

	// Tile usage policies require an identifying client.
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	if f.cfg.Referer != "" {
		req.Header.Set("Referer", f.cfg.Referer)
	}

	f.logger.Debug("fetching tile from upstream", "tile", k.String(), "url", url)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("fetch %s: %w", url, err), false)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrUpstreamUnavailable, url, resp.StatusCode)
	}

	tileData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read tile body: %w", err), false)
	}
	if len(tileData) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty body", domain.ErrUpstreamUnavailable, url)
	}

	f.logger.Debug("fetched tile from upstream", "tile", k.String(), "size", len(tileData))
	return tileData, nil
}

// classify maps transport failures onto the upstream error taxonomy. A caller
// cancellation is passed through untouched.
func classify(ctx context.Context, err error, limiter bool) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	if limiter || errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}

func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}

package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/mission"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MissionRepository interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, points []domain.GeoPoint) error
	Backup(ctx context.Context, name string, data []byte) (string, error)
}

type AppendRequest struct {
	SessionID   string
	ImageryType string
	Points      []domain.GeoPoint
}

type AppendResult struct {
	Filename string
	Count    int
}

var sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type MissionUseCase struct {
	repo          MissionRepository
	rules         []domain.PointRule
	backupCorrupt bool
	locks         *keyedMutex
	now           func() time.Time
	logger        logger.Logger
}

type MissionOption func(*MissionUseCase)

// WithPointRules replaces the default point validation policy.
func WithPointRules(rules ...domain.PointRule) MissionOption {
	return func(uc *MissionUseCase) {
		uc.rules = rules
	}
}

// WithCorruptBackup controls whether unreadable sessions are copied aside
// before they are overwritten.
func WithCorruptBackup(enabled bool) MissionOption {
	return func(uc *MissionUseCase) {
		uc.backupCorrupt = enabled
	}
}

func withClock(now func() time.Time) MissionOption {
	return func(uc *MissionUseCase) {
		uc.now = now
	}
}

func NewMissionUseCase(repo MissionRepository, l logger.Logger, opts ...MissionOption) *MissionUseCase {
	uc := &MissionUseCase{
		repo:          repo,
		rules:         domain.DefaultPointRules(),
		backupCorrupt: true,
		locks:         newKeyedMutex(),
		now:           time.Now,
		logger:        l,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// SessionName builds the file name for a session started now on the given layer.
func (uc *MissionUseCase) SessionName(imageryType string) string {
	layer := strings.TrimSpace(imageryType)
	if layer == "" {
		layer = domain.LayerOSM.String()
	}
	ts := uc.now().UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("mission_coordinates_%s_%s.json", layer, ts)
}

// Append merges points into the session, deduplicating by (latitude, longitude),
// and persists the result. Appends to one session are serialized.
func (uc *MissionUseCase) Append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Mission.Append",
		trace.WithAttributes(attribute.Int("mission.points", len(req.Points))),
	)
	defer span.End()

	result, err := uc.append(ctx, req)
	if err != nil {
		metrics.MissionAppends.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AppendResult{}, err
	}

	metrics.MissionAppends.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.String("mission.file", result.Filename),
		attribute.Int("mission.count", result.Count),
	)
	return result, nil
}

func (uc *MissionUseCase) append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	if err := domain.ValidatePoints(req.Points, uc.rules...); err != nil {
		return AppendResult{}, err
	}

	name := req.SessionID
	if name == "" {
		name = uc.SessionName(req.ImageryType)
	}
	if err := validateSessionName(name); err != nil {
		return AppendResult{}, err
	}

	unlock := uc.locks.Lock(name)
	defer unlock()

	raw, err := uc.repo.Load(ctx, name)
	if err != nil {
		return AppendResult{}, err
	}

	existing, err := mission.Decode(raw)
	if err != nil {
		metrics.MissionCorruptSessions.Inc()
		existing = nil
		if uc.backupCorrupt {
			backup, berr := uc.repo.Backup(ctx, name, raw)
			if berr != nil {
				return AppendResult{}, fmt.Errorf("back up unreadable session %s: %w", name, berr)
			}
			uc.logger.Warn("unreadable mission session replaced", "file", name, "backup", backup, "error", err)
		} else {
			uc.logger.Warn("unreadable mission session replaced", "file", name, "error", err)
		}
	}

	merged := make([]domain.GeoPoint, 0, len(existing)+len(req.Points))
	merged = append(merged, existing...)
	merged = append(merged, req.Points...)
	merged = domain.DedupPoints(merged)

	if err := uc.repo.Save(ctx, name, merged); err != nil {
		return AppendResult{}, err
	}

	uc.logger.Info("saved mission coordinates", "file", name, "added", len(req.Points), "count", len(merged))

	return AppendResult{Filename: name, Count: len(merged)}, nil
}

func validateSessionName(name string) error {
	if !sessionNamePattern.MatchString(name) || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSession, name)
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

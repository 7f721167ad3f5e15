package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/mission"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMissionUseCase(t *testing.T, opts ...MissionOption) (*MissionUseCase, *mission.FileStore) {
	t.Helper()
	repo, err := mission.NewFileStore(t.TempDir(), logger.NewNoOp())
	if err != nil {
		t.Fatal(err)
	}
	return NewMissionUseCase(repo, logger.NewNoOp(), opts...), repo
}

func readSession(t *testing.T, repo *mission.FileStore, name string) []domain.GeoPoint {
	t.Helper()
	raw, err := repo.Load(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	points, err := mission.Decode(raw)
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return points
}

func TestAppendDeduplicatesWithinBatch(t *testing.T) {
	uc, repo := newMissionUseCase(t)

	res, err := uc.Append(context.Background(), AppendRequest{
		SessionID: "s.json",
		Points:    []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}, {Latitude: 1, Longitude: 2, Altitude: 10}},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count = %d, want 1", res.Count)
	}
	if got := readSession(t, repo, "s.json"); len(got) != 1 {
		t.Fatalf("persisted %d points, want 1", len(got))
	}
}

func TestAppendMergesInOrder(t *testing.T) {
	uc, repo := newMissionUseCase(t)
	ctx := context.Background()

	if _, err := uc.Append(ctx, AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}}); err != nil {
		t.Fatal(err)
	}
	res, err := uc.Append(ctx, AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 3, Longitude: 4, Altitude: 10}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 {
		t.Fatalf("count = %d, want 2", res.Count)
	}

	want := []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}, {Latitude: 3, Longitude: 4, Altitude: 10}}
	got := readSession(t, repo, "s.json")
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAppendRejectsWrongAltitude(t *testing.T) {
	uc, repo := newMissionUseCase(t)
	ctx := context.Background()

	if _, err := uc.Append(ctx, AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(repo.Dir(), "s.json")
	before, _ := os.ReadFile(path)

	_, err := uc.Append(ctx, AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 5, Longitude: 6, Altitude: 11}}})
	if !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("want ErrInvalidCoordinate, got %v", err)
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatal("rejected append modified the session file")
	}
}

func TestAppendRejectsEmptyBatch(t *testing.T) {
	uc, _ := newMissionUseCase(t)
	if _, err := uc.Append(context.Background(), AppendRequest{SessionID: "s.json"}); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Fatalf("want ErrInvalidCoordinate, got %v", err)
	}
}

func TestAppendCustomRules(t *testing.T) {
	uc, _ := newMissionUseCase(t, WithPointRules(domain.FiniteRule))
	res, err := uc.Append(context.Background(), AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 120}}})
	if err != nil || res.Count != 1 {
		t.Fatalf("Append = %+v, %v", res, err)
	}
}

func TestAppendRecoversCorruptSession(t *testing.T) {
	uc, repo := newMissionUseCase(t)
	path := filepath.Join(repo.Dir(), "s.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	corruptBefore := testutil.ToFloat64(metrics.MissionCorruptSessions)

	res, err := uc.Append(context.Background(), AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count = %d, want 1", res.Count)
	}
	if got := testutil.ToFloat64(metrics.MissionCorruptSessions) - corruptBefore; got != 1 {
		t.Fatalf("corrupt session counter moved by %v, want 1", got)
	}

	entries, _ := os.ReadDir(repo.Dir())
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "s.json.corrupt-") {
			backups++
			data, _ := os.ReadFile(filepath.Join(repo.Dir(), e.Name()))
			if string(data) != "{broken" {
				t.Fatalf("backup content = %q", data)
			}
		}
	}
	if backups != 1 {
		t.Fatalf("found %d backups, want 1", backups)
	}
}

func TestAppendRecoversWithoutBackup(t *testing.T) {
	uc, repo := newMissionUseCase(t, WithCorruptBackup(false))
	if err := os.WriteFile(filepath.Join(repo.Dir(), "s.json"), []byte(`{"latitude":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Append(context.Background(), AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}}); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(repo.Dir())
	if len(entries) != 1 {
		t.Fatalf("expected only the session file, got %d entries", len(entries))
	}
}

func TestAppendRejectsUnsafeSessionNames(t *testing.T) {
	uc, _ := newMissionUseCase(t)
	for _, name := range []string{"../x.json", "a/b.json", ".hidden", "a..json", "x y.json"} {
		_, err := uc.Append(context.Background(), AppendRequest{SessionID: name, Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}})
		if !errors.Is(err, domain.ErrInvalidSession) {
			t.Errorf("%q: want ErrInvalidSession, got %v", name, err)
		}
	}
}

func TestSessionName(t *testing.T) {
	at := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC)
	uc, _ := newMissionUseCase(t, withClock(func() time.Time { return at }))

	if got, want := uc.SessionName("gsat"), "mission_coordinates_gsat_2024-03-05T07-08-09-123Z.json"; got != want {
		t.Fatalf("SessionName = %q, want %q", got, want)
	}
	if got := uc.SessionName(""); !strings.HasPrefix(got, "mission_coordinates_osm_") {
		t.Fatalf("default layer not applied: %q", got)
	}

	res, err := uc.Append(context.Background(), AppendRequest{ImageryType: "gsat", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Filename != "mission_coordinates_gsat_2024-03-05T07-08-09-123Z.json" {
		t.Fatalf("generated filename = %q", res.Filename)
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	uc, repo := newMissionUseCase(t)
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.Append(context.Background(), AppendRequest{
				SessionID: "shared.json",
				Points:    []domain.GeoPoint{{Latitude: float64(i), Longitude: float64(i), Altitude: 10}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	if got := readSession(t, repo, "shared.json"); len(got) != n {
		t.Fatalf("persisted %d points, want %d", len(got), n)
	}
}

type failingMissionRepo struct {
	*mission.FileStore
}

func (r failingMissionRepo) Save(context.Context, string, []domain.GeoPoint) error {
	return fmt.Errorf("%w: read-only filesystem", domain.ErrIO)
}

func TestAppendSaveFailure(t *testing.T) {
	_, repo := newMissionUseCase(t)
	uc := NewMissionUseCase(failingMissionRepo{repo}, logger.NewNoOp())

	if _, err := uc.Append(context.Background(), AppendRequest{SessionID: "s.json", Points: []domain.GeoPoint{{Latitude: 1, Longitude: 2, Altitude: 10}}}); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("want ErrIO, got %v", err)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	if len(k.locks) != 0 {
		t.Fatalf("lock table holds %d entries after release", len(k.locks))
	}
}

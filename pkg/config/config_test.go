package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if cfg.HTTP.Server.Port != "8484" {
		t.Errorf("port = %q, want 8484", cfg.HTTP.Server.Port)
	}
	if cfg.Cache.Root != "./Tiles" {
		t.Errorf("cache root = %q, want ./Tiles", cfg.Cache.Root)
	}
	if cfg.Missions.Dir != "./missions" {
		t.Errorf("missions dir = %q, want ./missions", cfg.Missions.Dir)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("upstream timeout = %v, want 10s", cfg.Upstream.Timeout)
	}

	want := WarmupRanges{{Layer: "osm"}, {Layer: "gsat"}}
	if len(cfg.Warmup.Ranges) != len(want) {
		t.Fatalf("warmup ranges = %+v, want %+v", cfg.Warmup.Ranges, want)
	}
	for i := range want {
		if cfg.Warmup.Ranges[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, cfg.Warmup.Ranges[i], want[i])
		}
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_SERVER_PORT", "9000")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("WARMUP_RANGES", "osm:0-3:0-7:1-2")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if cfg.HTTP.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.HTTP.Server.Port)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Cache.Backend)
	}
	if cfg.Upstream.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Upstream.Timeout)
	}
	want := WarmupRange{Layer: "osm", MinZ: 0, MaxZ: 3, MinX: 0, MaxX: 7, MinY: 1, MaxY: 2}
	if len(cfg.Warmup.Ranges) != 1 || cfg.Warmup.Ranges[0] != want {
		t.Errorf("ranges = %+v, want [%+v]", cfg.Warmup.Ranges, want)
	}
}

func TestWarmupRangesUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "osm:0-0:0-0:0-0", want: 1},
		{in: "osm:2:1:1;gsat:0-4:0-15:0-15;", want: 2},
		{in: "", want: 0},
		{in: "osm:0-0:0-0", wantErr: true},
		{in: "osm:3-1:0-0:0-0", wantErr: true},
		{in: ":0:0:0", wantErr: true},
		{in: "osm:a:0:0", wantErr: true},
	}

	for _, tt := range tests {
		var r WarmupRanges
		err := r.UnmarshalText([]byte(tt.in))
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
			continue
		}
		if len(r) != tt.want {
			t.Errorf("%q: got %d ranges, want %d", tt.in, len(r), tt.want)
		}
	}
}

func TestRedacted(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CACHE_REDIS_PASSWORD", "hunter2")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	safe := cfg.Redacted()
	if safe.Cache.Redis.Password == "hunter2" {
		t.Fatal("redis password not masked")
	}
	if cfg.Cache.Redis.Password != "hunter2" {
		t.Fatal("Redacted must not modify the original config")
	}
	if safe.Cache.Redis.Addr != cfg.Cache.Redis.Addr {
		t.Fatal("non-secret fields must be kept")
	}

	if empty := (Config{}).Redacted(); empty.Cache.Redis.Password != "" {
		t.Fatal("an empty password should stay empty")
	}
}

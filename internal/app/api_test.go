package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	v1 "github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/upstream"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/gcs/internal/repository/mission"
	"github.com/jaennil/guide_helper/backend/gcs/internal/usecase"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

func TestShutdownDrainsInflightTileRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tile := []byte("\x89PNG\r\n\x1a\nslow")

	started := make(chan struct{})
	var once sync.Once
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		time.Sleep(300 * time.Millisecond)
		w.Write(tile)
	}))
	defer up.Close()

	l := logger.NewNoOp()
	fetcher := upstream.NewFetcher(upstream.Config{
		URLTemplates: map[domain.Layer]string{
			domain.LayerOSM:       up.URL + "/{z}/{x}/{y}.png",
			domain.LayerSatellite: up.URL + "/sat/{z}/{x}/{y}",
		},
		Timeout: 5 * time.Second,
	}, l)
	repo, err := mission.NewFileStore(t.TempDir(), l)
	if err != nil {
		t.Fatal(err)
	}
	h := handler.NewHandler(
		validator.New(),
		usecase.NewTileCacheUseCase(cache.NewMapStore(), fetcher, l),
		usecase.NewMissionUseCase(repo, l),
	)

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), l))
	defer cancel()

	srv := newHTTPServer(ctx, config.HTTP{
		Server: config.Server{Port: "0"},
		CORS:   config.CORS{AllowedOrigins: []string{"*"}},
	}, v1.NewRouter(h, l, false))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(ln)

	type result struct {
		status int
		body   []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/osm/1/0/0.png")
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		done <- result{status: resp.StatusCode, body: body, err: err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached upstream")
	}

	// the shutdown signal arrives while the tile is still being fetched
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("in-flight request failed: %v", res.err)
	}
	if res.status != http.StatusOK {
		t.Fatalf("in-flight request status = %d, want 200", res.status)
	}
	if !bytes.Equal(res.body, tile) {
		t.Fatalf("body = %q, want %q", res.body, tile)
	}
}

func TestRunReturnsStartupErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Logger: config.Logger{Level: "error"},
		Cache:  config.Cache{Backend: "memory"},
		// a file where the missions directory should be
		Missions: config.Missions{Dir: filepath.Join(dir, "blocked", "missions")},
	}
	if err := os.WriteFile(filepath.Join(dir, "blocked"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Run(cfg); err == nil {
		t.Fatal("Run should return the mission store error instead of exiting")
	}
}

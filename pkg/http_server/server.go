package http_server

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/config"
)

func NewServer(cfg config.Server, corsCfg config.CORS, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      withCORS(corsCfg, handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func withCORS(cfg config.CORS, next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Tile-Source", "X-Request-ID"},
		MaxAge:         cfg.MaxAge,
	})(next)
}

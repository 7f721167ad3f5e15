package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestIDHeader = "X-Request-ID"

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware())
	}

	r.Use(requestID(l))
	r.Use(ginZapLogger())

	r.GET("/", handler.Index)
	r.GET("/favicon.ico", handler.Favicon)
	r.GET("/healthz", handler.Healthz)

	// paths used by the map view
	r.GET("/osm/:z/:x/:y", handler.OSMTile)
	r.GET("/gsat/:z/:x/:y", handler.SatelliteTile)
	r.POST("/save-mission", handler.SaveMission)

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)
	v1.GET("/tile/:layer/:z/:x/:y", handler.Tile)
	v1.GET("/cache/stats", handler.CacheStats)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// requestID reuses an incoming X-Request-ID or mints one, and scopes the
// request logger to it.
func requestID(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		rl := l.With("request_id", id)
		c.Set("logger", rl)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), rl))

		c.Next()
	}
}

func ginZapLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logger.FromContext(c.Request.Context())

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			return
		}

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}

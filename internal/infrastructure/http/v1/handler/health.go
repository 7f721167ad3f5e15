package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const indexText = `Tile server is running.

GET  /osm/{z}/{x}/{y}.png              OpenStreetMap tiles
GET  /gsat/{z}/{x}/{y}.png             satellite tiles
GET  /api/v1/tile/{layer}/{z}/{x}/{y}
POST /save-mission                     append mission coordinates
GET  /api/v1/cache/stats
GET  /healthz
GET  /metrics
`

func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, indexText)
}

func (h *Handler) Favicon(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.tiles.Stats())
}

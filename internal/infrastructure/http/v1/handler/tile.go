package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
)

const (
	tileCacheControl = "public, max-age=604800"
	osmAttribution   = "© OpenStreetMap contributors"
)

func (h *Handler) OSMTile(c *gin.Context) {
	h.serveTile(c, domain.LayerOSM.String())
}

func (h *Handler) SatelliteTile(c *gin.Context) {
	h.serveTile(c, domain.LayerSatellite.String())
}

// Tile serves /api/v1/tile/:layer/:z/:x/:y.
func (h *Handler) Tile(c *gin.Context) {
	h.serveTile(c, c.Param("layer"))
}

func (h *Handler) serveTile(c *gin.Context, layer string) {
	l := loggerFrom(c)

	k, err := domain.ParseTileKey(layer, c.Param("z"), c.Param("x"), c.Param("y"))
	if err != nil {
		l.Warn("invalid tile request", "layer", layer, "z", c.Param("z"), "x", c.Param("x"), "y", c.Param("y"), "error", err)
		h.RespondWithError(c, http.StatusBadRequest, err)
		return
	}

	data, source, err := h.tiles.GetTile(c.Request.Context(), k)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.RespondWithInternalServerError(c, err)
			return
		}
		if code == statusClientClosedRequest {
			l.Debug("caller context ended while waiting for tile", "tile", k.String(), "error", err)
			c.AbortWithStatus(code)
			return
		}
		l.Warn("failed to get tile", "tile", k.String(), "status", code, "error", err)
		h.RespondWithError(c, code, publicError(err))
		return
	}

	c.Header("Cache-Control", tileCacheControl)
	c.Header("X-Tile-Source", string(source))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	if k.Layer == domain.LayerOSM {
		c.Header("X-OpenStreetMap-Attribution", osmAttribution)
	}

	l.Debug("served tile", "tile", k.String(), "source", source, "size", len(data))

	c.Data(http.StatusOK, "image/png", data)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/internal/usecase"
	"github.com/jaennil/guide_helper/backend/gcs/pkg/logger"
)

type TileService interface {
	GetTile(ctx context.Context, k domain.TileKey) ([]byte, usecase.TileSource, error)
	Stats() usecase.CacheStats
}

type MissionService interface {
	Append(ctx context.Context, req usecase.AppendRequest) (usecase.AppendResult, error)
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handler struct {
	validate *validator.Validate
	tiles    TileService
	missions MissionService
}

func NewHandler(v *validator.Validate, tiles TileService, missions MissionService) *Handler {
	return &Handler{
		validate: v,
		tiles:    tiles,
		missions: missions,
	}
}

// loggerFrom returns the request scoped logger set by the router middleware.
func loggerFrom(c *gin.Context) logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if l, ok := l.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}

func (h *Handler) RespondWithError(c *gin.Context, code int, err error) {
	if code >= 500 {
		loggerFrom(c).Error("http_server error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"error", err,
		)
	}
	h.RespondWithJSON(c, code, err.Error(), nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	c.AbortWithStatusJSON(code, response{
		Success: code < 400,
		Message: message,
		Data:    data,
	})
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context, err error) {
	loggerFrom(c).Error("internal http_server error",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"user_agent", c.Request.UserAgent(),
		"ip", c.ClientIP(),
		"error", err,
	)
	h.RespondWithJSON(c, http.StatusInternalServerError, ErrInternalServer.Error(), nil)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
	"github.com/jaennil/guide_helper/backend/gcs/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/gcs/internal/usecase"
)

func (h *Handler) SaveMission(c *gin.Context) {
	l := loggerFrom(c)

	var req dto.SaveMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn("invalid save-mission body", "error", err)
		h.missionError(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		l.Warn("save-mission validation failed", "error", err)
		h.missionError(c, http.StatusBadRequest, describeValidation(err))
		return
	}

	res, err := h.missions.Append(c.Request.Context(), usecase.AppendRequest{
		SessionID:   req.Filename,
		ImageryType: req.ImageryType,
		Points:      req.Points(),
	})
	if err != nil {
		code := statusFor(err)
		if code == http.StatusBadRequest {
			l.Warn("rejected mission coordinates", "error", err)
			h.missionError(c, code, err.Error())
			return
		}
		l.Error("error saving mission coordinates", "error", err)
		h.missionError(c, http.StatusInternalServerError, ErrSaveMission.Error())
		return
	}

	c.JSON(http.StatusOK, dto.SaveMissionResponse{
		Status:   "success",
		Message:  "Mission coordinates saved",
		Filename: res.Filename,
		Count:    res.Count,
	})
}

func (h *Handler) missionError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.SaveMissionResponse{
		Status:  "error",
		Message: message,
	})
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidCoordinate.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Coordinates":
		return "invalid or empty coordinates array"
	case "Latitude", "Longitude", "Altitude":
		return "invalid coordinate data: " + fe.Namespace() + " is " + fe.Tag()
	default:
		return fe.Namespace() + " failed " + fe.Tag()
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaennil/guide_helper/backend/gcs/internal/domain"
)

var (
	ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")
	ErrInternalServer            = errors.New("server encountered a problem and could not process your request")
	ErrSaveMission               = errors.New("failed to save mission coordinates")
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTileCoordinate),
		errors.Is(err, domain.ErrInvalidCoordinate),
		errors.Is(err, domain.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicError hides wrapped details such as upstream URLs from clients.
func publicError(err error) error {
	for _, target := range []error{
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamUnavailable,
		domain.ErrInvalidTileCoordinate,
	} {
		if errors.Is(err, target) {
			return target
		}
	}
	return ErrInternalServer
}

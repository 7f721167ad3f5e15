package dto

import "github.com/jaennil/guide_helper/backend/gcs/internal/domain"

// Coordinate uses pointers so that a missing field is told apart from zero.
type Coordinate struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Altitude  *float64 `json:"altitude" validate:"required"`
}

type SaveMissionRequest struct {
	Coordinates []Coordinate `json:"coordinates" validate:"required,min=1,dive"`
	ImageryType string       `json:"imageryType" validate:"omitempty,max=32"`
	Filename    string       `json:"filename" validate:"omitempty,max=255"`
}

type SaveMissionResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
	Count    int    `json:"count,omitempty"`
}

func (r SaveMissionRequest) Points() []domain.GeoPoint {
	points := make([]domain.GeoPoint, 0, len(r.Coordinates))
	for _, c := range r.Coordinates {
		points = append(points, domain.GeoPoint{
			Latitude:  *c.Latitude,
			Longitude: *c.Longitude,
			Altitude:  *c.Altitude,
		})
	}
	return points
}

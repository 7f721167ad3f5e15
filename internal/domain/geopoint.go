package domain

import (
	"fmt"
	"math"
)

// MissionAltitude is the only altitude the planner currently accepts.
const MissionAltitude = 10.0

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// PointRule rejects a point by returning a non-nil error.
type PointRule func(GeoPoint) error

func FiniteRule(p GeoPoint) error {
	if !isFinite(p.Latitude) || !isFinite(p.Longitude) || !isFinite(p.Altitude) {
		return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidCoordinate, p)
	}
	return nil
}

func FixedAltitudeRule(altitude float64) PointRule {
	return func(p GeoPoint) error {
		if p.Altitude != altitude {
			return fmt.Errorf("%w: altitude must be %g meters, got %g", ErrInvalidCoordinate, altitude, p.Altitude)
		}
		return nil
	}
}

// DefaultPointRules is the product policy for mission points.
func DefaultPointRules() []PointRule {
	return []PointRule{FiniteRule, FixedAltitudeRule(MissionAltitude)}
}

// ValidatePoints applies every rule to every point and stops at the first failure.
func ValidatePoints(points []GeoPoint, rules ...PointRule) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: empty coordinates array", ErrInvalidCoordinate)
	}
	for i, p := range points {
		for _, rule := range rules {
			if err := rule(p); err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
		}
	}
	return nil
}

type pointKey struct {
	lat float64
	lon float64
}

// DedupPoints collapses points sharing (latitude, longitude). The last occurrence
// wins, at the position where the pair was first seen.
func DedupPoints(points []GeoPoint) []GeoPoint {
	index := make(map[pointKey]int, len(points))
	out := make([]GeoPoint, 0, len(points))
	for _, p := range points {
		k := pointKey{lat: p.Latitude, lon: p.Longitude}
		if i, ok := index[k]; ok {
			out[i] = p
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

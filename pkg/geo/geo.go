// Package geo supplies the device position that checkout and supplier
// signup need. Without a position both flows are blocked.
package geo

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable means no position could be determined.
var ErrUnavailable = errors.New("Unable to retrieve your location")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string { return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng) }

// GeoJSON is the backend's supplier location shape. Coordinates are
// [longitude, latitude].
type GeoJSON struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p Point) GeoJSON() GeoJSON {
	return GeoJSON{Type: "Point", Coordinates: [2]float64{p.Lng, p.Lat}}
}

// Locator resolves the current position.
type Locator interface {
	Locate(ctx context.Context) (Point, error)
}

// Static always answers with a fixed position, or ErrUnavailable when none
// was configured.
type Static struct {
	point *Point
}

// NewStatic returns a locator for (lat, lng). ok=false yields a locator that
// is always unavailable.
func NewStatic(lat, lng float64, ok bool) *Static {
	if !ok || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return &Static{}
	}
	return &Static{point: &Point{Lat: lat, Lng: lng}}
}

func (s *Static) Locate(ctx context.Context) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}
	if s.point == nil {
		return Point{}, ErrUnavailable
	}
	return *s.point, nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (Point, error) { return f(ctx) }

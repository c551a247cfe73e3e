package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Bounds is the latitude/longitude box enclosing a track.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the bounding box of the track and false when it is empty.
func BoundsOf(t Track) (Bounds, bool) {
	if len(t) == 0 {
		return Bounds{}, false
	}
	rect := s2.EmptyRect()
	for _, c := range t {
		rect = rect.AddPoint(s2.LatLngFromDegrees(c.Latitude, c.Longitude))
	}
	return Bounds{
		South: rect.Lo().Lat.Degrees(),
		West:  rect.Lo().Lng.Degrees(),
		North: rect.Hi().Lat.Degrees(),
		East:  rect.Hi().Lng.Degrees(),
	}, true
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(b.South, b.West)).
		AddPoint(s2.LatLngFromDegrees(b.North, b.East))
	c := rect.Center()
	return Coordinate{Latitude: c.Lat.Degrees(), Longitude: c.Lng.Degrees()}
}

// BoundsAround returns the box enclosing the circle of radiusMeters around
// center. Near the poles or the antimeridian the box widens accordingly.
func BoundsAround(center Coordinate, radiusMeters float64) Bounds {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(center.Latitude, center.Longitude))
	rect := s2.CapFromCenterAngle(p, s1.Angle(radiusMeters/EarthRadiusMeters)).RectBound()
	return Bounds{
		South: rect.Lo().Lat.Degrees(),
		West:  rect.Lo().Lng.Degrees(),
		North: rect.Hi().Lat.Degrees(),
		East:  rect.Hi().Lng.Degrees(),
	}
}

// Contains reports whether c lies inside the box. A box with West > East
// spans the antimeridian.
func (b Bounds) Contains(c Coordinate) bool {
	if c.Latitude < b.South || c.Latitude > b.North {
		return false
	}
	if b.West <= b.East {
		return c.Longitude >= b.West && c.Longitude <= b.East
	}
	return c.Longitude >= b.West || c.Longitude <= b.East
}

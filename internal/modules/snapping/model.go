// README: Wire types for the /get_route path-snapping contract and its OpenRouteService upstream.
package snapping

import (
	"encoding/json"
	"errors"
	"fmt"

	"trailtrack/internal/geo"
)

var (
	ErrTooFewWaypoints = errors.New("need at least 2 points")
	ErrSnapFailed      = errors.New("path snapping failed")
	ErrUpstream        = errors.New("route request failed")
)

// RouteRequest is the body of POST /get_route.
type RouteRequest struct {
	Waypoints []geo.Coordinate `json:"waypoints"`
}

// FeatureCollection is the subset of a GeoJSON response the snapper reads.
// Positions are [longitude, latitude].
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type     string   `json:"type"`
	Geometry Geometry `json:"geometry"`
}

type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// orsRequest is the OpenRouteService directions body.
type orsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

// UpstreamError carries the upstream body of a failed directions call.
type UpstreamError struct {
	Status  int
	Details string
}

func (e *UpstreamError) Error() string {
	return ErrUpstream.Error() + ": " + e.Details
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// DecodeTrack extracts the first feature's line from a GeoJSON document,
// converting [lng, lat] pairs to coordinates.
func DecodeTrack(body []byte) (geo.Track, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("response has no features")
	}
	coords := fc.Features[0].Geometry.Coordinates
	if len(coords) == 0 {
		return nil, errors.New("first feature has no coordinates")
	}
	out := make(geo.Track, 0, len(coords))
	for i, pos := range coords {
		if len(pos) < 2 {
			return nil, fmt.Errorf("position %d has %d values", i, len(pos))
		}
		out = append(out, geo.Coordinate{Latitude: pos[1], Longitude: pos[0]})
	}
	return out, nil
}

func toLngLat(points geo.Track) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Longitude, p.Latitude}
	}
	return out
}

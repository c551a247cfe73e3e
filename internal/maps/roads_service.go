package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"trailtrack/internal/geo"
)

// snapChunk is the Roads API limit on points per request.
const snapChunk = 100

// RoadsService snaps recorded tracks with the Google Roads API.
type RoadsService struct {
	client *maps.Client
}

// NewRoadsService creates a new RoadsService with the given API Key.
func NewRoadsService(apiKey string) (*RoadsService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RoadsService{client: client}, nil
}

// Snap aligns path with the nearest roads and paths, interpolating between
// fixes. Long tracks are sent in consecutive chunks.
func (s *RoadsService) Snap(ctx context.Context, path geo.Track) (geo.Track, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("snap to road: need at least 2 points")
	}
	var out geo.Track
	for _, chunk := range chunkTrack(path, snapChunk) {
		resp, err := s.client.SnapToRoad(ctx, &maps.SnapToRoadRequest{
			Path:        toLatLng(chunk),
			Interpolate: true,
		})
		if err != nil {
			return nil, fmt.Errorf("roads api error: %w", err)
		}
		for _, sp := range resp.SnappedPoints {
			out = append(out, geo.Coordinate{Latitude: sp.Location.Lat, Longitude: sp.Location.Lng})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no snapped points returned")
	}
	return out, nil
}

// chunkTrack splits path into runs of at most size points. Consecutive runs
// share their boundary point so the snapped line stays continuous.
func chunkTrack(path geo.Track, size int) []geo.Track {
	if len(path) <= size {
		return []geo.Track{path}
	}
	var chunks []geo.Track
	for start := 0; start < len(path)-1; start += size - 1 {
		end := start + size
		if end > len(path) {
			end = len(path)
		}
		chunks = append(chunks, path[start:end])
	}
	return chunks
}

func toLatLng(path geo.Track) []maps.LatLng {
	out := make([]maps.LatLng, len(path))
	for i, p := range path {
		out[i] = maps.LatLng{Lat: p.Latitude, Lng: p.Longitude}
	}
	return out
}

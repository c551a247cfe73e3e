package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"trailtrack/internal/geo"
)

// MaxNearbyRadiusMeters caps the Places nearby-search radius.
const MaxNearbyRadiusMeters = 50000

// Place represents a simplified location result.
type Place struct {
	Name             string         `json:"name"`
	Address          string         `json:"address"`
	Rating           float32        `json:"rating"`
	PlaceID          string         `json:"place_id"`
	UserRatingsTotal int            `json:"user_ratings_total"`
	Location         geo.Coordinate `json:"location"`
	DistanceMeters   float64        `json:"distance_m"`
}

// SearchOptions refines a nearby search.
type SearchOptions struct {
	// Keyword is passed to the API (e.g. "shelter", "water").
	Keyword string
	// ExcludeKeywords drop any result whose name contains them.
	ExcludeKeywords []string
	// MinRating drops results rated below it. Zero keeps unrated places.
	MinRating float32
	// Limit caps the result count. Zero means no cap.
	Limit int
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// SearchNearby lists places within radiusMeters of center, closest first.
func (s *PlacesService) SearchNearby(ctx context.Context, center geo.Coordinate, radiusMeters uint, opts *SearchOptions) ([]Place, error) {
	if radiusMeters == 0 || radiusMeters > MaxNearbyRadiusMeters {
		radiusMeters = MaxNearbyRadiusMeters
	}
	r := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Latitude, Lng: center.Longitude},
		Radius:   radiusMeters,
	}
	if opts != nil {
		r.Keyword = opts.Keyword
	}

	resp, err := s.client.NearbySearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, result := range resp.Results {
		places = append(places, Place{
			Name:             result.Name,
			Address:          result.Vicinity,
			Rating:           result.Rating,
			PlaceID:          result.PlaceID,
			UserRatingsTotal: result.UserRatingsTotal,
			Location: geo.Coordinate{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
		})
	}
	return filterPlaces(places, center, float64(radiusMeters), opts), nil
}

// filterPlaces drops results outside the radius or matching the exclusions,
// fills in distances and sorts closest first.
func filterPlaces(places []Place, center geo.Coordinate, radiusMeters float64, opts *SearchOptions) []Place {
	var out []Place
	seen := make(map[string]bool)
	for _, p := range places {
		if p.PlaceID != "" && seen[p.PlaceID] {
			continue
		}
		p.DistanceMeters = geo.DistanceMeters(center, p.Location)
		if p.DistanceMeters > radiusMeters {
			continue
		}
		if opts != nil {
			if p.Rating < opts.MinRating {
				continue
			}
			if containsAny(p.Name, opts.ExcludeKeywords) {
				continue
			}
		}
		seen[p.PlaceID] = true
		out = append(out, p)
	}
	geo.SortByDistance(out, func(p Place) float64 { return p.DistanceMeters })
	if opts != nil && opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

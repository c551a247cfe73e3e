// README: Nearby places (Google Places) around a hiker's position.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	"trailtrack/internal/maps"
)

const (
	defaultPlacesRadiusM = 1000.0
	defaultPlacesLimit   = 10
)

// PlaceFinder is implemented by maps.PlacesService.
type PlaceFinder interface {
	SearchNearby(ctx context.Context, center geo.Coordinate, radiusMeters uint, opts *maps.SearchOptions) ([]maps.Place, error)
}

type PlacesHandler struct {
	places PlaceFinder
}

func NewPlacesHandler(places PlaceFinder) *PlacesHandler {
	return &PlacesHandler{places: places}
}

func (h *PlacesHandler) Nearby(c *gin.Context) {
	center, ok := queryCoordinate(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius, ok := queryFloat(c, "radius_m", defaultPlacesRadiusM)
	if !ok || radius > maps.MaxNearbyRadiusMeters {
		writeError(c, http.StatusBadRequest, "invalid radius_m")
		return
	}
	limit, ok := queryInt(c, "limit", defaultPlacesLimit)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	places, err := h.places.SearchNearby(c.Request.Context(), center, uint(radius), &maps.SearchOptions{
		Keyword: c.Query("keyword"),
		Limit:   limit,
	})
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "places lookup failed")
		return
	}
	if places == nil {
		places = []maps.Place{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"places": places})
}

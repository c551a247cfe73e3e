// README: Saved route aggregate shared by the Postgres and Firestore stores.
package routes

import (
	"errors"
	"time"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

var (
	ErrNotFound     = errors.New("route not found")
	ErrInvalidRoute = errors.New("invalid route")
)

type Route struct {
	ID              types.ID       `json:"id" firestore:"id"`
	OwnerID         types.ID       `json:"owner_id" firestore:"owner_id"`
	Name            string         `json:"name" firestore:"name"`
	LengthMeters    float64        `json:"length_m" firestore:"length_m"`
	DurationSeconds int64          `json:"duration_s" firestore:"duration_s"`
	Path            geo.Track      `json:"path" firestore:"path"`
	Start           geo.Coordinate `json:"start" firestore:"start"`
	Public          bool           `json:"public" firestore:"public"`
	CreatedAt       time.Time      `json:"created_at" firestore:"created_at"`
}

// NearbyRoute is a public route with the distance from the query point to its start.
type NearbyRoute struct {
	Route
	DistanceMeters float64 `json:"distance_m"`
}

func (r Route) validate() error {
	if r.ID == "" || r.OwnerID == "" {
		return ErrInvalidRoute
	}
	if r.LengthMeters < 0 || r.DurationSeconds < 0 {
		return ErrInvalidRoute
	}
	return nil
}

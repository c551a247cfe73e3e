package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"trailtrack/internal/geo"
	"trailtrack/internal/http/handlers"
	"trailtrack/internal/maps"
)

type stubPlaces struct {
	radius uint
	opts   *maps.SearchOptions
	out    []maps.Place
	err    error
}

func (s *stubPlaces) SearchNearby(_ context.Context, _ geo.Coordinate, radius uint, opts *maps.SearchOptions) ([]maps.Place, error) {
	s.radius, s.opts = radius, opts
	return s.out, s.err
}

func TestPlaces_Nearby(t *testing.T) {
	places := &stubPlaces{out: []maps.Place{{Name: "Haukkalampi hut", PlaceID: "p1"}}}
	r, api := newAuthedEngine(makeVerifier("alice"))
	api.GET("/places/nearby", handlers.NewPlacesHandler(places).Nearby)

	w := doRequest(r, http.MethodGet, "/api/places/nearby?lat=60.31&lng=24.52&radius_m=2500&keyword=shelter", nil, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Places []maps.Place `json:"places"`
	}
	decode(t, w, &body)
	if len(body.Places) != 1 || places.radius != 2500 || places.opts.Keyword != "shelter" {
		t.Errorf("unexpected result %+v radius=%d opts=%+v", body.Places, places.radius, places.opts)
	}

	w = doRequest(r, http.MethodGet, "/api/places/nearby?lat=60.31&lng=24.52&radius_m=90000", nil, bearer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("radius too big: expected 400, got %d", w.Code)
	}

	places.err = errors.New("quota")
	w = doRequest(r, http.MethodGet, "/api/places/nearby?lat=60.31&lng=24.52", nil, bearer)
	if w.Code != http.StatusBadGateway {
		t.Errorf("upstream error: expected 502, got %d", w.Code)
	}
}

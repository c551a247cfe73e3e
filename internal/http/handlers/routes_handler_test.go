package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	"trailtrack/internal/http/handlers"
	"trailtrack/internal/modules/routes"
	"trailtrack/internal/types"
)

type stubRouteService struct {
	routes    map[types.ID]routes.Route
	listErr   error
	lastLimit int
	lastNear  struct {
		center geo.Coordinate
		radius float64
	}
}

func (s *stubRouteService) ListByOwner(_ context.Context, owner types.ID, limit int) ([]routes.Route, error) {
	s.lastLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []routes.Route
	for _, r := range s.routes {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRouteService) Get(_ context.Context, caller, id types.ID) (routes.Route, error) {
	r, ok := s.routes[id]
	if !ok || (r.OwnerID != caller && !r.Public) {
		return routes.Route{}, routes.ErrNotFound
	}
	return r, nil
}

func (s *stubRouteService) Delete(_ context.Context, owner, id types.ID) error {
	r, ok := s.routes[id]
	if !ok || r.OwnerID != owner {
		return routes.ErrNotFound
	}
	delete(s.routes, id)
	return nil
}

func (s *stubRouteService) SetPublic(_ context.Context, owner, id types.ID, public bool) error {
	r, ok := s.routes[id]
	if !ok || r.OwnerID != owner {
		return routes.ErrNotFound
	}
	r.Public = public
	s.routes[id] = r
	return nil
}

func (s *stubRouteService) ListPublicNear(_ context.Context, center geo.Coordinate, radius float64, _ int) ([]routes.NearbyRoute, error) {
	s.lastNear.center, s.lastNear.radius = center, radius
	var out []routes.NearbyRoute
	for _, r := range s.routes {
		if r.Public {
			out = append(out, routes.NearbyRoute{Route: r})
		}
	}
	return out, nil
}

func buildRoutesRouter(uid string, svc handlers.RouteService) *gin.Engine {
	r, api := newAuthedEngine(makeVerifier(uid))
	h := handlers.NewRoutesHandler(svc)
	api.GET("/routes", h.List)
	api.GET("/routes/public", h.Public)
	api.GET("/routes/:id", h.Get)
	api.DELETE("/routes/:id", h.Delete)
	api.PUT("/routes/:id/visibility", h.SetVisibility)
	return r
}

func newStubRoutes() *stubRouteService {
	return &stubRouteService{routes: map[types.ID]routes.Route{
		"r-1": {ID: "r-1", OwnerID: "alice", Name: "Nuuksio loop", Path: geo.Track{}},
		"r-2": {ID: "r-2", OwnerID: "bob", Name: "Bob's secret", Path: geo.Track{}},
	}}
}

func TestRoutes_ListAndGet(t *testing.T) {
	svc := newStubRoutes()
	r := buildRoutesRouter("alice", svc)

	w := doRequest(r, http.MethodGet, "/api/routes?limit=5", nil, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list struct {
		Routes []routes.Route `json:"routes"`
	}
	decode(t, w, &list)
	if len(list.Routes) != 1 || list.Routes[0].ID != "r-1" || svc.lastLimit != 5 {
		t.Errorf("unexpected list %+v (limit %d)", list.Routes, svc.lastLimit)
	}

	w = doRequest(r, http.MethodGet, "/api/routes?limit=-1", nil, bearer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/routes/r-1", nil, bearer)
	if w.Code != http.StatusOK {
		t.Errorf("own route: expected 200, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/api/routes/r-2", nil, bearer)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign private route: expected 404, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/api/routes/bad%20id", nil, bearer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id: expected 400, got %d", w.Code)
	}
}

func TestRoutes_ListError(t *testing.T) {
	svc := newStubRoutes()
	svc.listErr = errors.New("db down")
	r := buildRoutesRouter("alice", svc)

	w := doRequest(r, http.MethodGet, "/api/routes", nil, bearer)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestRoutes_VisibilityAndDelete(t *testing.T) {
	svc := newStubRoutes()
	r := buildRoutesRouter("alice", svc)

	w := doRequest(r, http.MethodPut, "/api/routes/r-1/visibility", map[string]any{}, bearer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing public: expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPut, "/api/routes/r-1/visibility", map[string]any{"public": true}, bearer)
	if w.Code != http.StatusOK || !svc.routes["r-1"].Public {
		t.Errorf("share: expected 200 and public route, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPut, "/api/routes/r-2/visibility", map[string]any{"public": true}, bearer)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign route: expected 404, got %d", w.Code)
	}

	w = doRequest(r, http.MethodDelete, "/api/routes/r-2", nil, bearer)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: expected 404, got %d", w.Code)
	}
	w = doRequest(r, http.MethodDelete, "/api/routes/r-1", nil, bearer)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if _, ok := svc.routes["r-1"]; ok {
		t.Errorf("route should be gone")
	}
}

func TestRoutes_Public(t *testing.T) {
	svc := newStubRoutes()
	r := buildRoutesRouter("carol", svc)
	_ = svc.SetPublic(context.Background(), "bob", "r-2", true)

	w := doRequest(r, http.MethodGet, "/api/routes/public?lat=60.3&lng=24.5&radius_km=3", nil, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list struct {
		Routes []routes.NearbyRoute `json:"routes"`
	}
	decode(t, w, &list)
	if len(list.Routes) != 1 || list.Routes[0].ID != "r-2" {
		t.Errorf("unexpected public routes %+v", list.Routes)
	}
	if svc.lastNear.radius != 3000 || svc.lastNear.center.Latitude != 60.3 {
		t.Errorf("unexpected query %+v", svc.lastNear)
	}

	w = doRequest(r, http.MethodGet, "/api/routes/public?lat=abc&lng=24.5", nil, bearer)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad lat: expected 400, got %d", w.Code)
	}
}

// README: Saved and public route handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	httpmiddleware "trailtrack/internal/http/middleware"
	"trailtrack/internal/modules/routes"
	"trailtrack/internal/types"
)

const defaultPublicRadiusKm = 10.0

// RouteService is the subset of routes.Service the handlers use.
type RouteService interface {
	ListByOwner(ctx context.Context, owner types.ID, limit int) ([]routes.Route, error)
	Get(ctx context.Context, caller, id types.ID) (routes.Route, error)
	Delete(ctx context.Context, owner, id types.ID) error
	SetPublic(ctx context.Context, owner, id types.ID, public bool) error
	ListPublicNear(ctx context.Context, center geo.Coordinate, radiusMeters float64, limit int) ([]routes.NearbyRoute, error)
}

type RoutesHandler struct {
	routes RouteService
}

func NewRoutesHandler(svc RouteService) *RoutesHandler {
	return &RoutesHandler{routes: svc}
}

type visibilityReq struct {
	Public *bool `json:"public"`
}

func (h *RoutesHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", routes.DefaultListLimit)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	list, err := h.routes.ListByOwner(c.Request.Context(), types.ID(httpmiddleware.CallerUID(c)), limit)
	if err != nil {
		writeRouteError(c, err)
		return
	}
	if list == nil {
		list = []routes.Route{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"routes": list})
}

func (h *RoutesHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return
	}
	r, err := h.routes.Get(c.Request.Context(), types.ID(httpmiddleware.CallerUID(c)), types.ID(id))
	if err != nil {
		writeRouteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RoutesHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return
	}
	if err := h.routes.Delete(c.Request.Context(), types.ID(httpmiddleware.CallerUID(c)), types.ID(id)); err != nil {
		writeRouteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoutesHandler) SetVisibility(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return
	}
	var req visibilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Public == nil {
		writeError(c, http.StatusBadRequest, "public is required")
		return
	}
	owner := types.ID(httpmiddleware.CallerUID(c))
	if err := h.routes.SetPublic(c.Request.Context(), owner, types.ID(id), *req.Public); err != nil {
		writeRouteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"route_id": id, "public": *req.Public})
}

func (h *RoutesHandler) Public(c *gin.Context) {
	center, ok := queryCoordinate(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius, ok := queryFloat(c, "radius_km", defaultPublicRadiusKm)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid radius_km")
		return
	}
	limit, ok := queryInt(c, "limit", routes.DefaultListLimit)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	list, err := h.routes.ListPublicNear(c.Request.Context(), center, radius*1000, limit)
	if err != nil {
		writeRouteError(c, err)
		return
	}
	if list == nil {
		list = []routes.NearbyRoute{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"routes": list})
}

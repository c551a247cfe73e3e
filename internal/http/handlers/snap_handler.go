// README: POST /get_route, the OpenRouteService proxy used for path snapping.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/snapping"
)

// RouteProxy resolves waypoints into a GeoJSON walking route.
type RouteProxy interface {
	Route(ctx context.Context, waypoints geo.Track) (json.RawMessage, error)
}

type SnapHandler struct {
	proxy RouteProxy
}

func NewSnapHandler(proxy RouteProxy) *SnapHandler {
	return &SnapHandler{proxy: proxy}
}

type routeFailure struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (h *SnapHandler) GetRoute(c *gin.Context) {
	var req snapping.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Waypoints) < 2 {
		writeError(c, http.StatusBadRequest, "Need at least 2 points")
		return
	}
	raw, err := h.proxy.Route(c.Request.Context(), req.Waypoints)
	if err != nil {
		_ = c.Error(err)
		details := err.Error()
		var upErr *snapping.UpstreamError
		if errors.As(err, &upErr) {
			details = upErr.Details
		}
		writeJSON(c, http.StatusInternalServerError, routeFailure{Error: "Route request failed", Details: details})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

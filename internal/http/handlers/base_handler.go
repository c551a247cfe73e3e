// README: Base handler utilities (JSON helpers, query parsing, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/routes"
	"trailtrack/internal/modules/tracking"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the UUID-style IDs the route service generates.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeTrackingError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, tracking.ErrInvalidMode), errors.Is(err, tracking.ErrInvalidSample):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrNoOwner):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, tracking.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, tracking.ErrAlreadyRecording), errors.Is(err, tracking.ErrNotRecording):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, tracking.ErrSaveFailed):
		writeError(c, http.StatusBadGateway, tracking.ErrSaveFailed.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeRouteError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, routes.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, routes.ErrInvalidRoute):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// queryCoordinate reads lat/lng query parameters.
func queryCoordinate(c *gin.Context) (geo.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		return geo.Coordinate{}, false
	}
	p := geo.Coordinate{Latitude: lat, Longitude: lng}
	return p, p.Valid()
}

// queryFloat returns def when the parameter is absent and false when it is
// present but not a positive number.
func queryFloat(c *gin.Context, key string, def float64) (float64, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

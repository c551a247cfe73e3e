// README: Tracking handlers for start/samples/stop/snapshot and nearby live hikers.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailtrack/internal/geo"
	httpmiddleware "trailtrack/internal/http/middleware"
	"trailtrack/internal/modules/tracking"
	"trailtrack/internal/types"
)

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
	maxSamplesPerRequest  = 500
)

type TrackingHandler struct {
	tracking *tracking.Service
}

func NewTrackingHandler(svc *tracking.Service) *TrackingHandler {
	return &TrackingHandler{tracking: svc}
}

type startTrackingReq struct {
	Mode              string           `json:"mode"`
	BasePath          []geo.Coordinate `json:"base_path"`
	PermissionGranted bool             `json:"permission_granted"`
}

type samplePayload struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Heading    *float64   `json:"heading,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// samplesReq accepts either one fix at the top level or a batch in samples.
type samplesReq struct {
	samplePayload
	Samples []samplePayload `json:"samples"`
}

type stopTrackingReq struct {
	Name string `json:"name"`
}

type stopTrackingResp struct {
	tracking.StopResult
	Error string `json:"error,omitempty"`
}

func (h *TrackingHandler) Start(c *gin.Context) {
	var req startTrackingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	mode, err := tracking.ParseMode(req.Mode)
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	if mode != tracking.ModeNew && len(req.BasePath) == 0 {
		writeError(c, http.StatusBadRequest, "base_path is required when following a route")
		return
	}
	snap, err := h.tracking.Start(c.Request.Context(), tracking.StartCommand{
		Owner:             types.ID(httpmiddleware.CallerUID(c)),
		Mode:              mode,
		BasePath:          req.BasePath,
		PermissionGranted: req.PermissionGranted,
	})
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, snap)
}

func (h *TrackingHandler) Samples(c *gin.Context) {
	var req samplesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	payloads := req.Samples
	if len(payloads) == 0 {
		payloads = []samplePayload{req.samplePayload}
	}
	if len(payloads) > maxSamplesPerRequest {
		writeError(c, http.StatusRequestEntityTooLarge, "too many samples")
		return
	}
	samples := make([]tracking.Sample, 0, len(payloads))
	for _, p := range payloads {
		if p.Latitude == nil || p.Longitude == nil {
			writeError(c, http.StatusBadRequest, "latitude and longitude are required")
			return
		}
		smp := tracking.Sample{
			Position: geo.Coordinate{Latitude: *p.Latitude, Longitude: *p.Longitude},
			Heading:  p.Heading,
		}
		if p.RecordedAt != nil {
			smp.RecordedAt = *p.RecordedAt
		}
		samples = append(samples, smp)
	}

	owner := types.ID(httpmiddleware.CallerUID(c))
	accepted, err := h.tracking.Push(c.Request.Context(), owner, samples)
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	snap := h.tracking.Snapshot(owner)
	writeJSON(c, http.StatusOK, map[string]any{
		"accepted":    accepted,
		"distance_m":  snap.DistanceMeters,
		"elapsed_s":   snap.ElapsedSeconds,
		"point_count": len(snap.Points),
	})
}

func (h *TrackingHandler) Stop(c *gin.Context) {
	var req stopTrackingReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.tracking.Stop(c.Request.Context(), tracking.StopCommand{
		Owner: types.ID(httpmiddleware.CallerUID(c)),
		Name:  req.Name,
	})
	resp := stopTrackingResp{StopResult: res}
	if errors.Is(err, tracking.ErrSaveFailed) {
		// the device keeps the route so the user can retry
		_ = c.Error(err)
		resp.Error = tracking.ErrSaveFailed.Error()
		writeJSON(c, http.StatusBadGateway, resp)
		return
	}
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *TrackingHandler) Snapshot(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.tracking.Snapshot(types.ID(httpmiddleware.CallerUID(c))))
}

func (h *TrackingHandler) Nearby(c *gin.Context) {
	center, ok := queryCoordinate(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius, ok := queryFloat(c, "radius_km", defaultNearbyRadiusKm)
	if !ok || radius > maxNearbyRadiusKm {
		writeError(c, http.StatusBadRequest, "invalid radius_km")
		return
	}
	hikers, err := h.tracking.Nearby(c.Request.Context(), types.ID(httpmiddleware.CallerUID(c)), center, radius)
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	if hikers == nil {
		hikers = []tracking.NearbyHiker{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"hikers": hikers})
}

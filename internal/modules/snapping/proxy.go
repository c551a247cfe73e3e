// README: OpenRouteService proxy behind POST /get_route (foot-walking directions as GeoJSON).
package snapping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"trailtrack/internal/geo"
)

const (
	DefaultORSBaseURL = "https://api.openrouteservice.org"
	orsDirectionsPath = "/v2/directions/foot-walking/geojson"
)

// ProxyService turns waypoints into an OpenRouteService directions call and
// returns the upstream GeoJSON untouched.
type ProxyService struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewProxyService(baseURL, apiKey string, hc *http.Client, log *zap.Logger) *ProxyService {
	if baseURL == "" {
		baseURL = DefaultORSBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProxyService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
		log:     log,
	}
}

// Route requests a walking route through waypoints. Non-200 upstream answers
// come back as *UpstreamError.
func (s *ProxyService) Route(ctx context.Context, waypoints geo.Track) (json.RawMessage, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	reqBody, err := json.Marshal(orsRequest{Coordinates: toLngLat(waypoints)})
	if err != nil {
		return nil, fmt.Errorf("ors: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+orsDirectionsPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ors: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Details: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ors: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("ors directions failed", zap.Int("status", resp.StatusCode), zap.Int("waypoints", len(waypoints)))
		return nil, &UpstreamError{Status: resp.StatusCode, Details: string(body)}
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{Status: resp.StatusCode, Details: "invalid JSON from upstream"}
	}
	return json.RawMessage(body), nil
}

// Snap lets the proxy serve as an in-process snapper.
func (s *ProxyService) Snap(ctx context.Context, path geo.Track) (geo.Track, error) {
	raw, err := s.Route(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapFailed, err)
	}
	track, err := DecodeTrack(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSnapFailed, err)
	}
	return track, nil
}

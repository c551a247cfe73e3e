// README: HTTP client for the /get_route snapping service; implements tracking.Snapper.
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

	"trailtrack/internal/geo"
)

// Client posts raw tracks to a /get_route endpoint and reads back the
// snapped line.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Snap sends one request per call. Any failure is wrapped in ErrSnapFailed.
func (c *Client) Snap(ctx context.Context, path geo.Track) (geo.Track, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: %w", ErrSnapFailed, ErrTooFewWaypoints)
	}
	reqBody, err := json.Marshal(RouteRequest{Waypoints: path})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSnapFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get_route", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSnapFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %w", ErrSnapFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSnapFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSnapFailed, resp.StatusCode, truncate(body, 200))
	}

	track, err := DecodeTrack(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSnapFailed, err)
	}
	return track, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package main

import (
	"go.uber.org/zap"

	"trailtrack/internal/config"
	"trailtrack/internal/maps"
	"trailtrack/internal/modules/snapping"
	"trailtrack/internal/modules/tracking"
)

func recorderOptions(c config.Config) tracking.RecorderOptions {
	return tracking.RecorderOptions{
		Sampling: tracking.SamplingOptions{
			Accuracy:          tracking.AccuracyTier(c.Tracking.Accuracy),
			MinInterval:       c.Tracking.MinInterval(),
			MinDistanceMeters: c.Tracking.MinDistanceM,
		},
		SnapTimeout: c.Tracking.SnapTimeout(),
	}
}

func newProxy(c config.Config, log *zap.Logger) *snapping.ProxyService {
	return snapping.NewProxyService(c.Snapping.ORSBaseURL, c.Snapping.ORSAPIKey, nil, log.Named("ors"))
}

// newSnapper picks the path-snapping backend. A nil Snapper disables snapping.
func newSnapper(c config.Config, log *zap.Logger) (tracking.Snapper, error) {
	switch c.Snapping.Backend {
	case "google":
		return maps.NewRoadsService(c.Snapping.GoogleAPIKey)
	case "http":
		if c.Snapping.BaseURL == "" {
			return newProxy(c, log), nil
		}
		return snapping.NewClient(c.Snapping.BaseURL, nil), nil
	default:
		return nil, nil
	}
}

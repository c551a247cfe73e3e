// README: API gateway; holds module services and builds the gin engine.
package http

import (
	"net/http"

	"go.uber.org/zap"

	"trailtrack/internal/http/handlers"
	"trailtrack/internal/infra"
	"trailtrack/internal/modules/tracking"
)

type ServerDeps struct {
	Verifier infra.TokenVerifier
	Tracking *tracking.Service
	Routes   handlers.RouteService
	// Proxy, Places and Topics are optional; their endpoints are only mounted when set.
	Proxy  handlers.RouteProxy
	Places handlers.PlaceFinder
	Topics handlers.TopicResolver
	Logger *zap.Logger
}

type Server struct {
	verifier infra.TokenVerifier
	tracking *tracking.Service
	routes   handlers.RouteService
	proxy    handlers.RouteProxy
	places   handlers.PlaceFinder
	topics   handlers.TopicResolver
	log      *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{
		verifier: deps.Verifier,
		tracking: deps.Tracking,
		routes:   deps.Routes,
		proxy:    deps.Proxy,
		places:   deps.Places,
		topics:   deps.Topics,
		log:      deps.Logger,
	}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s)
}

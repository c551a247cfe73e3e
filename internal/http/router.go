// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trailtrack/internal/http/handlers"
	"trailtrack/internal/http/middleware"
)

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(s.log), middleware.Recovery(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// The snapping proxy keeps the public contract of the original service.
	if s.proxy != nil {
		snapHandler := handlers.NewSnapHandler(s.proxy)
		r.POST("/get_route", snapHandler.GetRoute)
	}

	api := r.Group("/api", middleware.Auth(s.verifier))

	trackingHandler := handlers.NewTrackingHandler(s.tracking)
	api.POST("/tracking/start", trackingHandler.Start)
	api.POST("/tracking/samples", trackingHandler.Samples)
	api.POST("/tracking/stop", trackingHandler.Stop)
	api.GET("/tracking/snapshot", trackingHandler.Snapshot)
	api.GET("/tracking/nearby", trackingHandler.Nearby)

	routesHandler := handlers.NewRoutesHandler(s.routes)
	api.GET("/routes", routesHandler.List)
	api.GET("/routes/public", routesHandler.Public)
	api.GET("/routes/:id", routesHandler.Get)
	api.DELETE("/routes/:id", routesHandler.Delete)
	api.PUT("/routes/:id/visibility", routesHandler.SetVisibility)

	if s.topics != nil {
		notifyHandler := handlers.NewNotifyHandler(s.topics)
		api.GET("/notifications/topic", notifyHandler.Topic)
	}

	if s.places != nil {
		placesHandler := handlers.NewPlacesHandler(s.places)
		api.GET("/places/nearby", placesHandler.Nearby)
	} else {
		s.log.Info("places api key not configured, /api/places/nearby disabled")
	}

	s.log.Debug("routes registered", zap.Int("count", len(r.Routes())))
	return r
}

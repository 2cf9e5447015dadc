// Package http assembles the gin engine for the monitoring API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hyperfleet/internal/interfaces/http/handlers"
	"hyperfleet/internal/interfaces/http/middleware"
	"hyperfleet/internal/interfaces/http/routes"
	"hyperfleet/internal/shared/logger"
)

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	Mode              string
	MonitoringHandler *handlers.MonitoringHandler
	EndpointHandler   *handlers.EndpointHandler
	Logger            logger.Interface
}

// NewRouter builds the gin engine with middleware and the route table.
func NewRouter(config *RouterConfig) *gin.Engine {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(config.Logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.SetupMonitoringRoutes(engine, &routes.MonitoringRouteConfig{
		MonitoringHandler: config.MonitoringHandler,
		EndpointHandler:   config.EndpointHandler,
	})

	return engine
}

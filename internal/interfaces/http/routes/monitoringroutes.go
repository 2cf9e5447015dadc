// Package routes wires the monitoring API route table.
package routes

import (
	"github.com/gin-gonic/gin"

	"hyperfleet/internal/interfaces/http/handlers"
)

// MonitoringRouteConfig holds dependencies for the monitoring routes.
type MonitoringRouteConfig struct {
	MonitoringHandler *handlers.MonitoringHandler
	EndpointHandler   *handlers.EndpointHandler
}

// SetupMonitoringRoutes configures the fleet monitoring API.
func SetupMonitoringRoutes(engine *gin.Engine, config *MonitoringRouteConfig) {
	api := engine.Group("/api")
	{
		api.GET("/fleet/status", config.MonitoringHandler.GetFleetStatus)
		api.POST("/monitor/wake", config.MonitoringHandler.WakeMonitor)

		endpoints := api.Group("/endpoints")
		{
			endpoints.GET("", config.EndpointHandler.ListEndpoints)
			endpoints.POST("", config.EndpointHandler.CreateEndpoint)
			endpoints.POST("/:id/deactivate", config.EndpointHandler.DeactivateEndpoint)

			endpoints.GET("/:id/status", config.MonitoringHandler.GetEndpointStatus)
			endpoints.POST("/:id/check", config.MonitoringHandler.CheckEndpoint)
			endpoints.POST("/:id/timeout/apply", config.MonitoringHandler.ApplyTimeout)
			endpoints.GET("/:id/probes", config.MonitoringHandler.ListProbeRecords)
		}
	}
}

// Package handlers implements the gin handlers for the monitoring API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hyperfleet/internal/application/monitoring/usecases"
	"hyperfleet/internal/shared/logger"
	"hyperfleet/internal/shared/utils"
)

// MonitorControl is the scheduler surface the API exposes: wake signals and
// manual re-checks both funnel into the scheduler's trigger channel.
type MonitorControl interface {
	Wake()
	CheckNow(endpointID uint)
}

// MonitoringHandler serves fleet and endpoint status endpoints.
type MonitoringHandler struct {
	getFleetStatusUC    *usecases.GetFleetStatusUseCase
	getEndpointStatusUC *usecases.GetEndpointStatusUseCase
	applyTimeoutUC      *usecases.ApplyTimeoutUseCase
	listProbeRecordsUC  *usecases.ListProbeRecordsUseCase
	monitor             MonitorControl
	logger              logger.Interface
}

func NewMonitoringHandler(
	getFleetStatusUC *usecases.GetFleetStatusUseCase,
	getEndpointStatusUC *usecases.GetEndpointStatusUseCase,
	applyTimeoutUC *usecases.ApplyTimeoutUseCase,
	listProbeRecordsUC *usecases.ListProbeRecordsUseCase,
	monitor MonitorControl,
	logger logger.Interface,
) *MonitoringHandler {
	return &MonitoringHandler{
		getFleetStatusUC:    getFleetStatusUC,
		getEndpointStatusUC: getEndpointStatusUC,
		applyTimeoutUC:      applyTimeoutUC,
		listProbeRecordsUC:  listProbeRecordsUC,
		monitor:             monitor,
		logger:              logger,
	}
}

// GetFleetStatus handles GET /api/fleet/status
func (h *MonitoringHandler) GetFleetStatus(c *gin.Context) {
	result, err := h.getFleetStatusUC.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result.Status)
}

// GetEndpointStatus handles GET /api/endpoints/:id/status
func (h *MonitoringHandler) GetEndpointStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.getEndpointStatusUC.Execute(c.Request.Context(), usecases.GetEndpointStatusQuery{EndpointID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result.Status)
}

// CheckEndpoint handles POST /api/endpoints/:id/check
func (h *MonitoringHandler) CheckEndpoint(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	h.monitor.CheckNow(id)
	utils.SuccessResponse(c, http.StatusAccepted, "Check scheduled", gin.H{"endpoint_id": id})
}

// ApplyTimeout handles POST /api/endpoints/:id/timeout/apply
func (h *MonitoringHandler) ApplyTimeout(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.applyTimeoutUC.Execute(c.Request.Context(), usecases.ApplyTimeoutCommand{EndpointID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Timeout recommendation applied", result)
}

// ListProbeRecords handles GET /api/endpoints/:id/probes
func (h *MonitoringHandler) ListProbeRecords(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	result, err := h.listProbeRecordsUC.Execute(c.Request.Context(), usecases.ListProbeRecordsQuery{
		EndpointID: id,
		Limit:      limit,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result.Records)
}

// WakeMonitor handles POST /api/monitor/wake
func (h *MonitoringHandler) WakeMonitor(c *gin.Context) {
	h.monitor.Wake()
	utils.SuccessResponse(c, http.StatusAccepted, "Monitor woken", nil)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid endpoint id")
		return 0, false
	}
	return uint(id), true
}

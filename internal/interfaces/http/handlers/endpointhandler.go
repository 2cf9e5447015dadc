package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hyperfleet/internal/application/monitoring/usecases"
	"hyperfleet/internal/shared/logger"
	"hyperfleet/internal/shared/utils"
)

// CreateEndpointRequest is the request body for registering an endpoint.
type CreateEndpointRequest struct {
	Name          string `json:"name" binding:"required"`
	Host          string `json:"host" binding:"required"`
	Port          uint16 `json:"port" binding:"required"`
	TunnelHost    string `json:"tunnel_host"`
	TunnelPort    uint16 `json:"tunnel_port"`
	CredentialRef string `json:"credential_ref" binding:"required"`
	VerifyTLS     bool   `json:"verify_tls"`
}

// EndpointHandler serves the minimal endpoint CRUD the engine carries.
type EndpointHandler struct {
	createEndpointUC     *usecases.CreateEndpointUseCase
	listEndpointsUC      *usecases.ListEndpointsUseCase
	deactivateEndpointUC *usecases.DeactivateEndpointUseCase
	logger               logger.Interface
}

func NewEndpointHandler(
	createEndpointUC *usecases.CreateEndpointUseCase,
	listEndpointsUC *usecases.ListEndpointsUseCase,
	deactivateEndpointUC *usecases.DeactivateEndpointUseCase,
	logger logger.Interface,
) *EndpointHandler {
	return &EndpointHandler{
		createEndpointUC:     createEndpointUC,
		listEndpointsUC:      listEndpointsUC,
		deactivateEndpointUC: deactivateEndpointUC,
		logger:               logger,
	}
}

// CreateEndpoint handles POST /api/endpoints
func (h *EndpointHandler) CreateEndpoint(c *gin.Context) {
	var req CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create endpoint", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createEndpointUC.Execute(c.Request.Context(), usecases.CreateEndpointCommand{
		Name:          req.Name,
		Host:          req.Host,
		Port:          req.Port,
		TunnelHost:    req.TunnelHost,
		TunnelPort:    req.TunnelPort,
		CredentialRef: req.CredentialRef,
		VerifyTLS:     req.VerifyTLS,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result.Endpoint, "Endpoint registered successfully")
}

// ListEndpoints handles GET /api/endpoints
func (h *EndpointHandler) ListEndpoints(c *gin.Context) {
	result, err := h.listEndpointsUC.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"endpoints": result.Endpoints,
		"statuses":  result.Statuses,
	})
}

// DeactivateEndpoint handles POST /api/endpoints/:id/deactivate
func (h *EndpointHandler) DeactivateEndpoint(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.deactivateEndpointUC.Execute(c.Request.Context(), usecases.DeactivateEndpointCommand{EndpointID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Endpoint deactivated", result)
}

package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/errors"
	"hyperfleet/internal/shared/logger"
)

type CreateEndpointCommand struct {
	Name          string
	Host          string
	Port          uint16
	TunnelHost    string
	TunnelPort    uint16
	CredentialRef string
	VerifyTLS     bool
}

type CreateEndpointResult struct {
	Endpoint *dto.EndpointDTO
}

// CreateEndpointUseCase registers an endpoint for monitoring. Full endpoint
// management lives in the fleet CRUD surface; this carries the minimum for
// the engine to be operable on its own.
type CreateEndpointUseCase struct {
	endpointRepo endpoint.Repository
	logger       logger.Interface
}

func NewCreateEndpointUseCase(
	endpointRepo endpoint.Repository,
	logger logger.Interface,
) *CreateEndpointUseCase {
	return &CreateEndpointUseCase{
		endpointRepo: endpointRepo,
		logger:       logger,
	}
}

func (uc *CreateEndpointUseCase) Execute(ctx context.Context, cmd CreateEndpointCommand) (*CreateEndpointResult, error) {
	ep, err := endpoint.NewEndpoint(cmd.Name, cmd.Host, cmd.Port, cmd.CredentialRef, cmd.VerifyTLS)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if cmd.TunnelHost != "" || cmd.TunnelPort != 0 {
		if err := ep.ConfigureTunnel(cmd.TunnelHost, cmd.TunnelPort); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	}

	if err := uc.endpointRepo.Create(ctx, ep); err != nil {
		return nil, err
	}

	uc.logger.Infow("endpoint registered", "endpoint_id", ep.ID(), "name", ep.Name())

	return &CreateEndpointResult{Endpoint: dto.NewEndpointDTO(ep)}, nil
}

package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/logger"
)

type ListEndpointsResult struct {
	Endpoints []*dto.EndpointDTO
	Statuses  map[uint]*dto.EndpointStatusDTO
}

// ListEndpointsUseCase lists endpoints with their live status when known.
type ListEndpointsUseCase struct {
	endpointRepo endpoint.Repository
	store        *monitoring.StatusStore
	logger       logger.Interface
}

func NewListEndpointsUseCase(
	endpointRepo endpoint.Repository,
	store *monitoring.StatusStore,
	logger logger.Interface,
) *ListEndpointsUseCase {
	return &ListEndpointsUseCase{
		endpointRepo: endpointRepo,
		store:        store,
		logger:       logger,
	}
}

func (uc *ListEndpointsUseCase) Execute(ctx context.Context) (*ListEndpointsResult, error) {
	endpoints, err := uc.endpointRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &ListEndpointsResult{
		Endpoints: make([]*dto.EndpointDTO, 0, len(endpoints)),
		Statuses:  make(map[uint]*dto.EndpointStatusDTO),
	}
	for _, ep := range endpoints {
		result.Endpoints = append(result.Endpoints, dto.NewEndpointDTO(ep))
		if view, ok := uc.store.View(ep.ID()); ok {
			result.Statuses[ep.ID()] = statusViewToDTO(view)
		}
	}
	return result, nil
}

package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/logger"
)

type GetEndpointStatusQuery struct {
	EndpointID uint
}

type GetEndpointStatusResult struct {
	Status *dto.EndpointStatusDTO
}

// GetEndpointStatusUseCase returns one endpoint's live status, falling back
// to the persisted snapshot when this instance has not probed it yet.
type GetEndpointStatusUseCase struct {
	endpointRepo endpoint.Repository
	statusRepo   endpoint.StatusRepository
	store        *monitoring.StatusStore
	logger       logger.Interface
}

func NewGetEndpointStatusUseCase(
	endpointRepo endpoint.Repository,
	statusRepo endpoint.StatusRepository,
	store *monitoring.StatusStore,
	logger logger.Interface,
) *GetEndpointStatusUseCase {
	return &GetEndpointStatusUseCase{
		endpointRepo: endpointRepo,
		statusRepo:   statusRepo,
		store:        store,
		logger:       logger,
	}
}

func (uc *GetEndpointStatusUseCase) Execute(ctx context.Context, query GetEndpointStatusQuery) (*GetEndpointStatusResult, error) {
	ep, err := uc.endpointRepo.GetByID(ctx, query.EndpointID)
	if err != nil {
		return nil, err
	}

	if view, ok := uc.store.View(ep.ID()); ok {
		return &GetEndpointStatusResult{Status: statusViewToDTO(view)}, nil
	}

	snapshot, err := uc.statusRepo.Get(ctx, ep.ID())
	if err != nil {
		return nil, err
	}

	return &GetEndpointStatusResult{Status: &dto.EndpointStatusDTO{
		EndpointID:           snapshot.EndpointID,
		State:                snapshot.State.String(),
		SuccessRate:          snapshot.SuccessRate,
		LastCheckedAt:        dto.FormatCheckedAt(snapshot.LastCheckedAt),
		LastError:            snapshot.LastError,
		CurrentTimeoutMs:     snapshot.Policy.CurrentMs,
		RecommendedTimeoutMs: snapshot.Policy.RecommendedMs,
	}}, nil
}

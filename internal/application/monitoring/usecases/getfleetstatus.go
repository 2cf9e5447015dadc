package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/cache"
	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/logger"
)

type GetFleetStatusResult struct {
	Status *dto.FleetStatusDTO
}

// GetFleetStatusUseCase returns the fleet-wide health aggregate, served
// from cache when available and recomputed on invalidation.
type GetFleetStatusUseCase struct {
	endpointRepo endpoint.Repository
	store        *monitoring.StatusStore
	fleetCache   FleetCache
	logger       logger.Interface
}

func NewGetFleetStatusUseCase(
	endpointRepo endpoint.Repository,
	store *monitoring.StatusStore,
	fleetCache FleetCache,
	logger logger.Interface,
) *GetFleetStatusUseCase {
	return &GetFleetStatusUseCase{
		endpointRepo: endpointRepo,
		store:        store,
		fleetCache:   fleetCache,
		logger:       logger,
	}
}

func (uc *GetFleetStatusUseCase) Execute(ctx context.Context) (*GetFleetStatusResult, error) {
	if cached, err := uc.fleetCache.Get(ctx); err == nil && cached != nil {
		return &GetFleetStatusResult{Status: countsToDTO(cached, true)}, nil
	} else if err != nil {
		uc.logger.Warnw("fleet status cache read failed, recomputing", "error", err)
	}

	counts, err := uc.compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := uc.fleetCache.Set(ctx, counts); err != nil {
		uc.logger.Warnw("failed to cache fleet status", "error", err)
	}

	return &GetFleetStatusResult{Status: countsToDTO(counts, false)}, nil
}

// compute aggregates over all active endpoints. Endpoints the live store
// has not seen yet count as unknown.
func (uc *GetFleetStatusUseCase) compute(ctx context.Context) (*cache.FleetCounts, error) {
	endpoints, err := uc.endpointRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	counts := &cache.FleetCounts{
		Total: len(endpoints),
		At:    biztime.NowUTC(),
	}

	for _, ep := range endpoints {
		state := vo.HealthStateUnknown
		if view, ok := uc.store.View(ep.ID()); ok {
			state = view.State
		}
		switch state {
		case vo.HealthStateOnline:
			counts.Online++
		case vo.HealthStateDegraded:
			counts.Degraded++
		case vo.HealthStateOffline:
			counts.Offline++
		case vo.HealthStateChecking:
			counts.Checking++
		default:
			counts.Unknown++
		}
	}

	return counts, nil
}

func countsToDTO(counts *cache.FleetCounts, fromCache bool) *dto.FleetStatusDTO {
	return &dto.FleetStatusDTO{
		Total:      counts.Total,
		Online:     counts.Online,
		Degraded:   counts.Degraded,
		Offline:    counts.Offline,
		Unknown:    counts.Unknown,
		Checking:   counts.Checking,
		ComputedAt: biztime.FormatMetadataTime(counts.At),
		FromCache:  fromCache,
	}
}

package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/logger"
)

type DeactivateEndpointCommand struct {
	EndpointID uint
}

type DeactivateEndpointResult struct {
	EndpointID uint
}

// DeactivateEndpointUseCase removes an endpoint from monitoring: cancels
// its in-flight probe, resets its status to unknown, and closes its active
// alert episodes without notifying.
type DeactivateEndpointUseCase struct {
	endpointRepo endpoint.Repository
	statusRepo   endpoint.StatusRepository
	episodeRepo  alert.EpisodeRepository
	store        *monitoring.StatusStore
	hysteresis   *alert.HysteresisEngine
	notifyLock   EpisodeNotifyLocker
	fleetCache   FleetCache
	publisher    StatusPublisher
	floorMs      uint32
	ceilingMs    uint32
	logger       logger.Interface
}

func NewDeactivateEndpointUseCase(
	endpointRepo endpoint.Repository,
	statusRepo endpoint.StatusRepository,
	episodeRepo alert.EpisodeRepository,
	store *monitoring.StatusStore,
	hysteresis *alert.HysteresisEngine,
	notifyLock EpisodeNotifyLocker,
	fleetCache FleetCache,
	publisher StatusPublisher,
	floorMs uint32,
	ceilingMs uint32,
	logger logger.Interface,
) *DeactivateEndpointUseCase {
	return &DeactivateEndpointUseCase{
		endpointRepo: endpointRepo,
		statusRepo:   statusRepo,
		episodeRepo:  episodeRepo,
		store:        store,
		hysteresis:   hysteresis,
		notifyLock:   notifyLock,
		fleetCache:   fleetCache,
		publisher:    publisher,
		floorMs:      floorMs,
		ceilingMs:    ceilingMs,
		logger:       logger,
	}
}

func (uc *DeactivateEndpointUseCase) Execute(ctx context.Context, cmd DeactivateEndpointCommand) (*DeactivateEndpointResult, error) {
	ep, err := uc.endpointRepo.GetByID(ctx, cmd.EndpointID)
	if err != nil {
		return nil, err
	}

	ep.Deactivate()
	if err := uc.endpointRepo.Update(ctx, ep); err != nil {
		return nil, err
	}

	uc.store.Deactivate(ep.ID())

	now := biztime.NowUTC()
	for _, episode := range uc.hysteresis.CloseAll(ep.ID(), now) {
		if err := uc.episodeRepo.Update(ctx, episode); err != nil {
			uc.logger.Errorw("failed to close alert episode on deactivation",
				"endpoint_id", ep.ID(),
				"kind", episode.Kind,
				"error", err,
			)
		}
		if err := uc.notifyLock.Release(ctx, episode.Kind, ep.ID()); err != nil {
			uc.logger.Warnw("failed to release episode notify lock",
				"endpoint_id", ep.ID(),
				"kind", episode.Kind,
				"error", err,
			)
		}
	}

	// Status resets to unknown with default policy so a later reactivation
	// starts clean.
	snapshot := &endpoint.StatusSnapshot{
		EndpointID: ep.ID(),
		State:      vo.HealthStateUnknown,
		Policy:     vo.NewTimeoutPolicy(uc.floorMs, uc.ceilingMs),
	}
	if err := uc.statusRepo.Upsert(ctx, snapshot); err != nil {
		uc.logger.Errorw("failed to reset status on deactivation", "endpoint_id", ep.ID(), "error", err)
	}

	if err := uc.fleetCache.Invalidate(ctx); err != nil {
		uc.logger.Warnw("failed to invalidate fleet status cache", "error", err)
	}

	update := pubsub.StatusUpdate{
		EndpointID:    ep.ID(),
		State:         vo.HealthStateUnknown.String(),
		LastCheckedAt: now.UnixMilli(),
	}
	if err := uc.publisher.PublishStatusUpdate(ctx, update); err != nil {
		uc.logger.Warnw("failed to broadcast deactivation", "endpoint_id", ep.ID(), "error", err)
	}

	uc.logger.Infow("endpoint deactivated", "endpoint_id", ep.ID())

	return &DeactivateEndpointResult{EndpointID: ep.ID()}, nil
}

package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/logger"
)

type ApplyTimeoutCommand struct {
	EndpointID uint
}

type ApplyTimeoutResult struct {
	EndpointID           uint
	CurrentTimeoutMs     uint32
	RecommendedTimeoutMs uint32
}

// ApplyTimeoutUseCase promotes an endpoint's recommended timeout to its
// authoritative budget. This is the only path that advances CurrentMs.
type ApplyTimeoutUseCase struct {
	endpointRepo endpoint.Repository
	statusRepo   endpoint.StatusRepository
	store        *monitoring.StatusStore
	publisher    StatusPublisher
	logger       logger.Interface
}

func NewApplyTimeoutUseCase(
	endpointRepo endpoint.Repository,
	statusRepo endpoint.StatusRepository,
	store *monitoring.StatusStore,
	publisher StatusPublisher,
	logger logger.Interface,
) *ApplyTimeoutUseCase {
	return &ApplyTimeoutUseCase{
		endpointRepo: endpointRepo,
		statusRepo:   statusRepo,
		store:        store,
		publisher:    publisher,
		logger:       logger,
	}
}

func (uc *ApplyTimeoutUseCase) Execute(ctx context.Context, cmd ApplyTimeoutCommand) (*ApplyTimeoutResult, error) {
	ep, err := uc.endpointRepo.GetByID(ctx, cmd.EndpointID)
	if err != nil {
		return nil, err
	}

	policy := uc.store.ApplyTimeout(ep.ID())

	if snapshot, ok := uc.store.Snapshot(ep.ID()); ok {
		if err := uc.statusRepo.Upsert(ctx, snapshot); err != nil {
			uc.logger.Errorw("failed to persist applied timeout", "endpoint_id", ep.ID(), "error", err)
		}
	}

	uc.logger.Infow("timeout recommendation applied",
		"endpoint_id", ep.ID(),
		"current_ms", policy.CurrentMs,
	)

	if view, ok := uc.store.View(ep.ID()); ok {
		update := pubsub.StatusUpdate{
			EndpointID:           ep.ID(),
			State:                view.State.String(),
			SuccessRate:          view.SuccessRate,
			LastCheckedAt:        biztime.NowUTC().UnixMilli(),
			LastError:            view.LastError,
			CurrentTimeoutMs:     policy.CurrentMs,
			RecommendedTimeoutMs: policy.RecommendedMs,
		}
		if err := uc.publisher.PublishStatusUpdate(ctx, update); err != nil {
			uc.logger.Warnw("failed to broadcast applied timeout", "endpoint_id", ep.ID(), "error", err)
		}
	}

	return &ApplyTimeoutResult{
		EndpointID:           ep.ID(),
		CurrentTimeoutMs:     policy.CurrentMs,
		RecommendedTimeoutMs: policy.RecommendedMs,
	}, nil
}

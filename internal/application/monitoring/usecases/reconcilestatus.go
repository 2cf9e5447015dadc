package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/shared/logger"
)

type ReconcileStatusResult struct {
	// Applied is false when the update was a stale echo and was dropped.
	Applied bool
}

// ReconcileStatusUseCase merges status updates pushed by other instances
// into the local store. An update wins only when its timestamp is strictly
// newer than the locally held one; conflicts resolve by timestamp, never by
// error.
type ReconcileStatusUseCase struct {
	store      *monitoring.StatusStore
	fleetCache FleetCache
	logger     logger.Interface
}

func NewReconcileStatusUseCase(
	store *monitoring.StatusStore,
	fleetCache FleetCache,
	logger logger.Interface,
) *ReconcileStatusUseCase {
	return &ReconcileStatusUseCase{
		store:      store,
		fleetCache: fleetCache,
		logger:     logger,
	}
}

func (uc *ReconcileStatusUseCase) Execute(ctx context.Context, update pubsub.StatusUpdate) (*ReconcileStatusResult, error) {
	state, err := vo.NewHealthState(update.State)
	if err != nil {
		uc.logger.Warnw("dropping status update with invalid state",
			"endpoint_id", update.EndpointID,
			"state", update.State,
		)
		return &ReconcileStatusResult{Applied: false}, nil
	}

	applied := uc.store.ApplyExternal(
		update.EndpointID,
		state,
		update.SuccessRate,
		update.CheckedAt(),
		update.LastError,
		update.CurrentTimeoutMs,
		update.RecommendedTimeoutMs,
	)
	if !applied {
		uc.logger.Debugw("dropping stale status update",
			"endpoint_id", update.EndpointID,
			"checked_at", update.CheckedAt(),
		)
		return &ReconcileStatusResult{Applied: false}, nil
	}

	uc.logger.Debugw("reconciled remote status update",
		"endpoint_id", update.EndpointID,
		"state", update.State,
	)

	if err := uc.fleetCache.Invalidate(ctx); err != nil {
		uc.logger.Warnw("failed to invalidate fleet status cache", "error", err)
	}

	return &ReconcileStatusResult{Applied: true}, nil
}

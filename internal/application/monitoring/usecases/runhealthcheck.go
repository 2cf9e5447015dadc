package usecases

import (
	"context"
	"time"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/errors"
	"hyperfleet/internal/shared/logger"
)

// notifyLockTTL bounds how long a delivered episode notification suppresses
// duplicates from other instances. Released explicitly on recovery.
const notifyLockTTL = 24 * time.Hour

type RunHealthCheckCommand struct {
	EndpointID uint
}

type RunHealthCheckResult struct {
	// Coalesced is true when a probe was already in flight and this
	// trigger was folded into it.
	Coalesced bool
	Status    *dto.EndpointStatusDTO
}

// RunHealthCheckUseCase executes the full pipeline for one endpoint: probe,
// calibrate, fold into the state machine, run alert hysteresis, persist,
// and broadcast the change.
type RunHealthCheckUseCase struct {
	endpointRepo endpoint.Repository
	statusRepo   endpoint.StatusRepository
	probeRepo    endpoint.ProbeRecordRepository
	episodeRepo  alert.EpisodeRepository
	prober       HealthProber
	store        *monitoring.StatusStore
	hysteresis   *alert.HysteresisEngine
	alertSink    AlertSink
	notifyLock   EpisodeNotifyLocker
	fleetCache   FleetCache
	publisher    StatusPublisher
	thresholds   endpoint.Thresholds
	logger       logger.Interface
}

func NewRunHealthCheckUseCase(
	endpointRepo endpoint.Repository,
	statusRepo endpoint.StatusRepository,
	probeRepo endpoint.ProbeRecordRepository,
	episodeRepo alert.EpisodeRepository,
	prober HealthProber,
	store *monitoring.StatusStore,
	hysteresis *alert.HysteresisEngine,
	alertSink AlertSink,
	notifyLock EpisodeNotifyLocker,
	fleetCache FleetCache,
	publisher StatusPublisher,
	thresholds endpoint.Thresholds,
	logger logger.Interface,
) *RunHealthCheckUseCase {
	return &RunHealthCheckUseCase{
		endpointRepo: endpointRepo,
		statusRepo:   statusRepo,
		probeRepo:    probeRepo,
		episodeRepo:  episodeRepo,
		prober:       prober,
		store:        store,
		hysteresis:   hysteresis,
		alertSink:    alertSink,
		notifyLock:   notifyLock,
		fleetCache:   fleetCache,
		publisher:    publisher,
		thresholds:   thresholds,
		logger:       logger,
	}
}

func (uc *RunHealthCheckUseCase) Execute(ctx context.Context, cmd RunHealthCheckCommand) (*RunHealthCheckResult, error) {
	ep, err := uc.endpointRepo.GetByID(ctx, cmd.EndpointID)
	if err != nil {
		return nil, err
	}
	if !ep.IsActive() {
		return nil, errors.NewValidationError("endpoint is not active")
	}

	timeoutMs := uc.store.CurrentTimeout(ep.ID())
	probeCtx, cancel := context.WithCancel(ctx)

	if !uc.store.BeginProbe(ep.ID(), cancel) {
		cancel()
		uc.logger.Debugw("probe already in flight, coalescing trigger", "endpoint_id", ep.ID())
		return &RunHealthCheckResult{Coalesced: true, Status: uc.statusDTO(ep.ID())}, nil
	}
	defer cancel()

	result := uc.prober.Probe(probeCtx, ep, timeoutMs)
	at := biztime.NowUTC()
	transition, _, tracked := uc.store.FinishProbe(ep.ID(), result, uc.thresholds, at)
	if !tracked {
		// The endpoint was deactivated while the probe ran; its episodes
		// are already closed, so the canceled result must not be folded in.
		uc.logger.Debugw("endpoint deactivated during probe, dropping result", "endpoint_id", ep.ID())
		return &RunHealthCheckResult{Coalesced: false, Status: nil}, nil
	}

	uc.logger.Infow("health check completed",
		"endpoint_id", ep.ID(),
		"success", result.Success,
		"state", transition.To,
		"total_ms", result.Timing.TotalMs,
		"error_stage", result.ErrorStage,
	)

	uc.persistOutcome(ctx, ep.ID(), result, timeoutMs, at)
	uc.handleAlerts(ctx, transition)

	if transition.From != transition.To {
		if err := uc.fleetCache.Invalidate(ctx); err != nil {
			uc.logger.Warnw("failed to invalidate fleet status cache", "error", err)
		}
	}

	uc.broadcast(ctx, ep.ID(), at)

	return &RunHealthCheckResult{Status: uc.statusDTO(ep.ID()), Coalesced: false}, nil
}

// persistOutcome writes the probe record and the status snapshot. Failures
// are logged: persistence lag must not fail the check itself.
func (uc *RunHealthCheckUseCase) persistOutcome(ctx context.Context, endpointID uint, result *endpoint.ProbeResult, timeoutMs uint32, at time.Time) {
	record := endpoint.NewProbeRecord(endpointID, result, timeoutMs, 0, at)
	if err := uc.probeRepo.Append(ctx, record); err != nil {
		uc.logger.Errorw("failed to persist probe record", "endpoint_id", endpointID, "error", err)
	}

	if snapshot, ok := uc.store.Snapshot(endpointID); ok {
		if err := uc.statusRepo.Upsert(ctx, snapshot); err != nil {
			uc.logger.Errorw("failed to persist status snapshot", "endpoint_id", endpointID, "error", err)
		}
	}
}

// handleAlerts feeds the transition to the hysteresis engine and acts on
// its decision: persist episode edges and deliver at most one notification
// per episode across all instances.
func (uc *RunHealthCheckUseCase) handleAlerts(ctx context.Context, transition endpoint.Transition) {
	decision := uc.hysteresis.Observe(transition)

	for _, episode := range decision.Opened {
		if err := uc.episodeRepo.Create(ctx, episode); err != nil {
			uc.logger.Errorw("failed to persist alert episode",
				"endpoint_id", episode.EndpointID,
				"kind", episode.Kind,
				"error", err,
			)
		}
	}

	for _, episode := range decision.Closed {
		if err := uc.episodeRepo.Update(ctx, episode); err != nil {
			uc.logger.Errorw("failed to close alert episode",
				"endpoint_id", episode.EndpointID,
				"kind", episode.Kind,
				"error", err,
			)
		}
		if err := uc.notifyLock.Release(ctx, episode.Kind, episode.EndpointID); err != nil {
			uc.logger.Warnw("failed to release episode notify lock",
				"endpoint_id", episode.EndpointID,
				"kind", episode.Kind,
				"error", err,
			)
		}
	}

	for _, event := range decision.Events {
		uc.deliver(ctx, event)
	}
}

func (uc *RunHealthCheckUseCase) deliver(ctx context.Context, event alert.Event) {
	// Recovery events reuse the lock key the open acquired; a fresh acquire
	// under a recovery-scoped key keeps open and recovery independent.
	kind := event.Kind
	if event.Type == alert.EventRecovered {
		kind = alert.Kind("recovered_" + string(event.Kind))
	}

	acquired, err := uc.notifyLock.TryAcquire(ctx, kind, event.EndpointID, notifyLockTTL)
	if err != nil {
		uc.logger.Warnw("episode notify lock unavailable, delivering anyway",
			"endpoint_id", event.EndpointID,
			"event_type", event.Type,
			"error", err,
		)
		acquired = true
	}
	if !acquired {
		uc.logger.Debugw("notification already delivered by another instance",
			"endpoint_id", event.EndpointID,
			"event_type", event.Type,
		)
		return
	}

	if event.Type == alert.EventRecovered {
		defer func() {
			if err := uc.notifyLock.Release(ctx, kind, event.EndpointID); err != nil {
				uc.logger.Warnw("failed to release recovery notify lock",
					"endpoint_id", event.EndpointID,
					"error", err,
				)
			}
		}()
	}

	uc.alertSink.Emit(ctx, event)
}

func (uc *RunHealthCheckUseCase) broadcast(ctx context.Context, endpointID uint, at time.Time) {
	view, ok := uc.store.View(endpointID)
	if !ok {
		return
	}
	update := pubsub.StatusUpdate{
		EndpointID:           endpointID,
		State:                view.State.String(),
		SuccessRate:          view.SuccessRate,
		LastCheckedAt:        at.UnixMilli(),
		LastError:            view.LastError,
		CurrentTimeoutMs:     view.Policy.CurrentMs,
		RecommendedTimeoutMs: view.Policy.RecommendedMs,
	}
	if err := uc.publisher.PublishStatusUpdate(ctx, update); err != nil {
		uc.logger.Warnw("failed to broadcast status update", "endpoint_id", endpointID, "error", err)
	}
}

func (uc *RunHealthCheckUseCase) statusDTO(endpointID uint) *dto.EndpointStatusDTO {
	view, ok := uc.store.View(endpointID)
	if !ok {
		return nil
	}
	return statusViewToDTO(view)
}

func statusViewToDTO(view monitoring.StatusView) *dto.EndpointStatusDTO {
	return &dto.EndpointStatusDTO{
		EndpointID:           view.EndpointID,
		State:                view.State.String(),
		SuccessRate:          view.SuccessRate,
		LastCheckedAt:        dto.FormatCheckedAt(view.LastCheckedAt),
		LastError:            view.LastError,
		CurrentTimeoutMs:     view.Policy.CurrentMs,
		RecommendedTimeoutMs: view.Policy.RecommendedMs,
	}
}

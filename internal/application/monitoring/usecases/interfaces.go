package usecases

import (
	"context"
	"time"

	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/cache"
	"hyperfleet/internal/infrastructure/pubsub"
)

// HealthProber runs one probe against an endpoint within the given budget.
type HealthProber interface {
	Probe(ctx context.Context, ep *endpoint.Endpoint, timeoutMs uint32) *endpoint.ProbeResult
}

// AlertSink delivers alert events to operators, best-effort.
type AlertSink interface {
	Emit(ctx context.Context, event alert.Event)
}

// EpisodeNotifyLocker deduplicates alert delivery across instances.
type EpisodeNotifyLocker interface {
	TryAcquire(ctx context.Context, kind alert.Kind, endpointID uint, ttl time.Duration) (bool, error)
	Release(ctx context.Context, kind alert.Kind, endpointID uint) error
}

// FleetCache caches the fleet-wide aggregate.
type FleetCache interface {
	Get(ctx context.Context) (*cache.FleetCounts, error)
	Set(ctx context.Context, counts *cache.FleetCounts) error
	Invalidate(ctx context.Context) error
}

// StatusPublisher broadcasts local status changes to other instances.
type StatusPublisher interface {
	PublishStatusUpdate(ctx context.Context, update pubsub.StatusUpdate) error
}

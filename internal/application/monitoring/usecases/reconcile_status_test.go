package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/pubsub"
)

// trackEndpoint folds one probe into the store so the endpoint is tracked,
// with a lastCheckedAt old enough not to shadow test updates.
func trackEndpoint(store *monitoring.StatusStore, id uint, success bool) {
	store.BeginProbe(id, func() {})
	var result *endpoint.ProbeResult
	if success {
		result = &endpoint.ProbeResult{Success: true, Timing: endpoint.ProbeTiming{TotalMs: 100}}
	} else {
		result = endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "refused", vo.ConnectionTypeDirect, 10)
	}
	store.FinishProbe(id, result, testThresholds(), time.Now().UTC().Add(-time.Hour))
}

func TestReconcileStatusAppliesFreshUpdate(t *testing.T) {
	store := monitoring.NewStatusStore(20, 5000, 120000)
	fleetCache := &mockFleetCache{}
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	uc := NewReconcileStatusUseCase(store, fleetCache, noopLogger{})

	trackEndpoint(store, 1, false)
	update := pubsub.StatusUpdate{
		EndpointID:    1,
		State:         "online",
		SuccessRate:   95,
		LastCheckedAt: time.Now().UnixMilli(),
	}

	result, err := uc.Execute(context.Background(), update)

	assert.NoError(t, err)
	assert.True(t, result.Applied)
	view, ok := store.View(1)
	assert.True(t, ok)
	assert.Equal(t, "online", view.State.String())
	fleetCache.AssertCalled(t, "Invalidate", mock.Anything)
}

func TestReconcileStatusDropsStaleEcho(t *testing.T) {
	store := monitoring.NewStatusStore(20, 5000, 120000)
	fleetCache := &mockFleetCache{}
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	uc := NewReconcileStatusUseCase(store, fleetCache, noopLogger{})

	trackEndpoint(store, 1, true)
	now := time.Now()
	fresh := pubsub.StatusUpdate{EndpointID: 1, State: "online", SuccessRate: 95, LastCheckedAt: now.UnixMilli()}
	stale := pubsub.StatusUpdate{EndpointID: 1, State: "offline", SuccessRate: 10, LastCheckedAt: now.Add(-time.Minute).UnixMilli()}
	equal := pubsub.StatusUpdate{EndpointID: 1, State: "offline", SuccessRate: 10, LastCheckedAt: now.UnixMilli()}

	_, err := uc.Execute(context.Background(), fresh)
	assert.NoError(t, err)

	result, err := uc.Execute(context.Background(), stale)
	assert.NoError(t, err)
	assert.False(t, result.Applied)

	// equal timestamps are not strictly newer
	result, err = uc.Execute(context.Background(), equal)
	assert.NoError(t, err)
	assert.False(t, result.Applied)

	view, _ := store.View(1)
	assert.Equal(t, "online", view.State.String())
	fleetCache.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestReconcileStatusIgnoresUntrackedEndpoint(t *testing.T) {
	store := monitoring.NewStatusStore(20, 5000, 120000)
	fleetCache := &mockFleetCache{}
	uc := NewReconcileStatusUseCase(store, fleetCache, noopLogger{})

	// a peer's broadcast for an endpoint this instance no longer tracks,
	// e.g. after a remote deactivation, must not recreate the entry
	result, err := uc.Execute(context.Background(), pubsub.StatusUpdate{
		EndpointID:    4,
		State:         "unknown",
		LastCheckedAt: time.Now().UnixMilli(),
	})

	assert.NoError(t, err)
	assert.False(t, result.Applied)
	_, tracked := store.View(4)
	assert.False(t, tracked)
	fleetCache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestReconcileStatusDropsInvalidState(t *testing.T) {
	store := monitoring.NewStatusStore(20, 5000, 120000)
	fleetCache := &mockFleetCache{}
	uc := NewReconcileStatusUseCase(store, fleetCache, noopLogger{})

	result, err := uc.Execute(context.Background(), pubsub.StatusUpdate{
		EndpointID:    1,
		State:         "exploded",
		LastCheckedAt: time.Now().UnixMilli(),
	})

	assert.NoError(t, err)
	assert.False(t, result.Applied)
	fleetCache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

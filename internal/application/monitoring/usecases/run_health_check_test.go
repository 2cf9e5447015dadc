package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

func testEndpoint(id uint) *endpoint.Endpoint {
	now := time.Now().UTC()
	return endpoint.ReconstructEndpoint(
		id, "pve-01", "pve01.internal", 8006,
		"", 0, "cred-1", true, true, now, now,
	)
}

func testThresholds() endpoint.Thresholds {
	return endpoint.Thresholds{SuccessRate: 80, LatencyMs: 500}
}

func newRunHealthCheckFixture() (*RunHealthCheckUseCase, *mockEndpointRepo, *mockStatusRepo, *mockProbeRecordRepo, *mockEpisodeRepo, *mockProber, *mockAlertSink, *mockNotifyLock, *mockFleetCache, *mockStatusPublisher, *monitoring.StatusStore) {
	endpointRepo := &mockEndpointRepo{}
	statusRepo := &mockStatusRepo{}
	probeRepo := &mockProbeRecordRepo{}
	episodeRepo := &mockEpisodeRepo{}
	prober := &mockProber{}
	alertSink := &mockAlertSink{}
	notifyLock := &mockNotifyLock{}
	fleetCache := &mockFleetCache{}
	publisher := &mockStatusPublisher{}
	store := monitoring.NewStatusStore(20, 5000, 120000)

	uc := NewRunHealthCheckUseCase(
		endpointRepo, statusRepo, probeRepo, episodeRepo,
		prober, store, alert.NewHysteresisEngine(),
		alertSink, notifyLock, fleetCache, publisher,
		testThresholds(), noopLogger{},
	)
	return uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, notifyLock, fleetCache, publisher, store
}

func TestRunHealthCheckSuccessGoesOnline(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, _, prober, _, _, fleetCache, publisher, _ := newRunHealthCheckFixture()
	ep := testEndpoint(1)

	endpointRepo.On("GetByID", mock.Anything, uint(1)).Return(ep, nil)
	prober.On("Probe", mock.Anything, ep, uint32(30000)).Return(&endpoint.ProbeResult{
		Success:        true,
		Timing:         endpoint.ProbeTiming{TotalMs: 120},
		ConnectionType: vo.ConnectionTypeDirect,
		ErrorStage:     vo.ErrorStageNone,
	})
	probeRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 1})

	assert.NoError(t, err)
	assert.False(t, result.Coalesced)
	assert.Equal(t, "online", result.Status.State)
	assert.Equal(t, float64(100), result.Status.SuccessRate)
	// success recommendation: 120 * 3 clamped up to the 5000 floor
	assert.Equal(t, uint32(5000), result.Status.RecommendedTimeoutMs)
	assert.Equal(t, uint32(30000), result.Status.CurrentTimeoutMs)
	probeRepo.AssertCalled(t, "Append", mock.Anything, mock.Anything)
	statusRepo.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
	publisher.AssertCalled(t, "PublishStatusUpdate", mock.Anything, mock.Anything)
}

func TestRunHealthCheckFailureOpensOfflineEpisode(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, notifyLock, fleetCache, publisher, _ := newRunHealthCheckFixture()
	ep := testEndpoint(2)

	endpointRepo.On("GetByID", mock.Anything, uint(2)).Return(ep, nil)
	prober.On("Probe", mock.Anything, ep, uint32(30000)).Return(
		endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "connection refused", vo.ConnectionTypeDirect, 42),
	)
	probeRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifyLock.On("TryAcquire", mock.Anything, alert.KindOffline, uint(2), mock.Anything).Return(true, nil)
	alertSink.On("Emit", mock.Anything, mock.Anything).Return()
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 2})

	assert.NoError(t, err)
	assert.Equal(t, "offline", result.Status.State)
	assert.Equal(t, "connection refused", result.Status.LastError)
	// failure recommendation: 30000 * 1.5
	assert.Equal(t, uint32(45000), result.Status.RecommendedTimeoutMs)
	episodeRepo.AssertNumberOfCalls(t, "Create", 1)
	alertSink.AssertNumberOfCalls(t, "Emit", 1)
}

func TestRunHealthCheckDropsResultWhenDeactivatedMidProbe(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, _, fleetCache, publisher, store := newRunHealthCheckFixture()
	ep := testEndpoint(6)

	endpointRepo.On("GetByID", mock.Anything, uint(6)).Return(ep, nil)
	// the endpoint is deactivated while its probe is in flight; the probe
	// comes back canceled as a failure
	prober.On("Probe", mock.Anything, ep, mock.Anything).
		Run(func(mock.Arguments) { store.Deactivate(6) }).
		Return(endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "context canceled", vo.ConnectionTypeDirect, 3))

	result, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 6})

	assert.NoError(t, err)
	assert.Nil(t, result.Status)
	_, tracked := store.View(6)
	assert.False(t, tracked)

	// the dropped result must not open an episode, alert, persist or
	// broadcast anything for the removed endpoint
	episodeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	alertSink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	probeRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	statusRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	fleetCache.AssertNotCalled(t, "Invalidate", mock.Anything)
	publisher.AssertNotCalled(t, "PublishStatusUpdate", mock.Anything, mock.Anything)
}

func TestRunHealthCheckRepeatedFailureDoesNotRefire(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, notifyLock, fleetCache, publisher, _ := newRunHealthCheckFixture()
	ep := testEndpoint(3)

	endpointRepo.On("GetByID", mock.Anything, uint(3)).Return(ep, nil)
	prober.On("Probe", mock.Anything, ep, mock.Anything).Return(
		endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "connection refused", vo.ConnectionTypeDirect, 42),
	)
	probeRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifyLock.On("TryAcquire", mock.Anything, alert.KindOffline, uint(3), mock.Anything).Return(true, nil)
	alertSink.On("Emit", mock.Anything, mock.Anything).Return()
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 3; i++ {
		_, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 3})
		assert.NoError(t, err)
	}

	// one episode, one notification, despite three failing polls
	episodeRepo.AssertNumberOfCalls(t, "Create", 1)
	alertSink.AssertNumberOfCalls(t, "Emit", 1)
}

func TestRunHealthCheckSuppressedWhenLockHeldElsewhere(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, notifyLock, fleetCache, publisher, _ := newRunHealthCheckFixture()
	ep := testEndpoint(4)

	endpointRepo.On("GetByID", mock.Anything, uint(4)).Return(ep, nil)
	prober.On("Probe", mock.Anything, ep, mock.Anything).Return(
		endpoint.NewFailedProbeResult(vo.ErrorStageDNS, "no such host", vo.ConnectionTypeDirect, 8),
	)
	probeRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifyLock.On("TryAcquire", mock.Anything, alert.KindOffline, uint(4), mock.Anything).Return(false, nil)
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 4})

	assert.NoError(t, err)
	// the episode is still recorded locally; only delivery is suppressed
	episodeRepo.AssertNumberOfCalls(t, "Create", 1)
	alertSink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRunHealthCheckCoalescesConcurrentTrigger(t *testing.T) {
	uc, endpointRepo, _, _, _, prober, _, _, _, _, store := newRunHealthCheckFixture()
	ep := testEndpoint(5)

	endpointRepo.On("GetByID", mock.Anything, uint(5)).Return(ep, nil)

	// a probe is already in flight for this endpoint
	assert.True(t, store.BeginProbe(5, func() {}))

	result, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 5})

	assert.NoError(t, err)
	assert.True(t, result.Coalesced)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunHealthCheckRejectsInactiveEndpoint(t *testing.T) {
	uc, endpointRepo, _, _, _, prober, _, _, _, _, _ := newRunHealthCheckFixture()
	now := time.Now().UTC()
	inactive := endpoint.ReconstructEndpoint(6, "pve-06", "pve06.internal", 8006, "", 0, "cred-6", true, false, now, now)

	endpointRepo.On("GetByID", mock.Anything, uint(6)).Return(inactive, nil)

	_, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 6})

	assert.Error(t, err)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunHealthCheckRecoveryClosesEpisodeAndNotifies(t *testing.T) {
	uc, endpointRepo, statusRepo, probeRepo, episodeRepo, prober, alertSink, notifyLock, fleetCache, publisher, _ := newRunHealthCheckFixture()
	ep := testEndpoint(7)

	endpointRepo.On("GetByID", mock.Anything, uint(7)).Return(ep, nil)
	probeRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	notifyLock.On("TryAcquire", mock.Anything, mock.Anything, uint(7), mock.Anything).Return(true, nil)
	notifyLock.On("Release", mock.Anything, mock.Anything, uint(7)).Return(nil)
	alertSink.On("Emit", mock.Anything, mock.Anything).Return()
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	fail := endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "connection refused", vo.ConnectionTypeDirect, 42)
	ok := &endpoint.ProbeResult{
		Success:        true,
		Timing:         endpoint.ProbeTiming{TotalMs: 90},
		ConnectionType: vo.ConnectionTypeDirect,
		ErrorStage:     vo.ErrorStageNone,
	}
	prober.On("Probe", mock.Anything, ep, mock.Anything).Return(fail).Once()
	prober.On("Probe", mock.Anything, ep, mock.Anything).Return(ok)

	_, err := uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 7})
	assert.NoError(t, err)

	// recovery probes until the rolling rate crosses the threshold again
	var last *RunHealthCheckResult
	for i := 0; i < 10; i++ {
		last, err = uc.Execute(context.Background(), RunHealthCheckCommand{EndpointID: 7})
		assert.NoError(t, err)
	}

	assert.Equal(t, "online", last.Status.State)
	// the climb back passes through degraded, so one offline and one
	// degraded episode were opened and both closed on reaching online
	episodeRepo.AssertNumberOfCalls(t, "Create", 2)
	episodeRepo.AssertNumberOfCalls(t, "Update", 2)
	// offline alert, degraded alert, recovery alert; degraded closes silently
	alertSink.AssertNumberOfCalls(t, "Emit", 3)
}

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
	"hyperfleet/internal/infrastructure/cache"
)

func TestGetFleetStatusServesFromCache(t *testing.T) {
	endpointRepo := &mockEndpointRepo{}
	fleetCache := &mockFleetCache{}
	store := monitoring.NewStatusStore(20, 5000, 120000)
	uc := NewGetFleetStatusUseCase(endpointRepo, store, fleetCache, noopLogger{})

	fleetCache.On("Get", mock.Anything).Return(&cache.FleetCounts{
		Total: 3, Online: 2, Offline: 1, At: time.Now().UTC(),
	}, nil)

	result, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.True(t, result.Status.FromCache)
	assert.Equal(t, 3, result.Status.Total)
	assert.Equal(t, 2, result.Status.Online)
	endpointRepo.AssertNotCalled(t, "ListActive", mock.Anything)
}

func TestGetFleetStatusRecomputesOnMiss(t *testing.T) {
	endpointRepo := &mockEndpointRepo{}
	fleetCache := &mockFleetCache{}
	store := monitoring.NewStatusStore(20, 5000, 120000)
	uc := NewGetFleetStatusUseCase(endpointRepo, store, fleetCache, noopLogger{})

	endpoints := []*endpoint.Endpoint{testEndpoint(1), testEndpoint(2), testEndpoint(3)}
	endpointRepo.On("ListActive", mock.Anything).Return(endpoints, nil)
	fleetCache.On("Get", mock.Anything).Return(nil, nil)
	fleetCache.On("Set", mock.Anything, mock.Anything).Return(nil)

	// endpoint 1 online, endpoint 2 offline, endpoint 3 never probed
	at := time.Now().UTC()
	store.BeginProbe(1, func() {})
	store.FinishProbe(1, &endpoint.ProbeResult{Success: true, Timing: endpoint.ProbeTiming{TotalMs: 100}}, testThresholds(), at)
	store.BeginProbe(2, func() {})
	store.FinishProbe(2, endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "refused", vo.ConnectionTypeDirect, 5), testThresholds(), at)

	result, err := uc.Execute(context.Background())

	assert.NoError(t, err)
	assert.False(t, result.Status.FromCache)
	assert.Equal(t, 3, result.Status.Total)
	assert.Equal(t, 1, result.Status.Online)
	assert.Equal(t, 1, result.Status.Offline)
	assert.Equal(t, 1, result.Status.Unknown)
	fleetCache.AssertCalled(t, "Set", mock.Anything, mock.Anything)
}

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

func TestDeactivateEndpointClosesEpisodesAndResetsStatus(t *testing.T) {
	endpointRepo := &mockEndpointRepo{}
	statusRepo := &mockStatusRepo{}
	episodeRepo := &mockEpisodeRepo{}
	notifyLock := &mockNotifyLock{}
	fleetCache := &mockFleetCache{}
	publisher := &mockStatusPublisher{}
	store := monitoring.NewStatusStore(20, 5000, 120000)
	hysteresis := alert.NewHysteresisEngine()

	uc := NewDeactivateEndpointUseCase(
		endpointRepo, statusRepo, episodeRepo, store, hysteresis,
		notifyLock, fleetCache, publisher, 5000, 120000, noopLogger{},
	)

	ep := testEndpoint(9)
	endpointRepo.On("GetByID", mock.Anything, uint(9)).Return(ep, nil)
	endpointRepo.On("Update", mock.Anything, ep).Return(nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	episodeRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	notifyLock.On("Release", mock.Anything, alert.KindOffline, uint(9)).Return(nil)
	fleetCache.On("Invalidate", mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	// endpoint is offline with an open episode and a probe in flight
	cancelled := false
	store.BeginProbe(9, func() { cancelled = true })
	fail := endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "connection refused", vo.ConnectionTypeDirect, 10)
	transition, _, _ := store.FinishProbe(9, fail, testThresholds(), time.Now().UTC())
	hysteresis.Observe(transition)
	store.BeginProbe(9, func() { cancelled = true })

	_, err := uc.Execute(context.Background(), DeactivateEndpointCommand{EndpointID: 9})

	assert.NoError(t, err)
	assert.False(t, ep.IsActive())
	assert.True(t, cancelled)
	assert.Nil(t, hysteresis.ActiveEpisode(9, alert.KindOffline))
	episodeRepo.AssertNumberOfCalls(t, "Update", 1)

	// live state is gone and the persisted snapshot was reset to unknown
	_, tracked := store.View(9)
	assert.False(t, tracked)
	statusRepo.AssertCalled(t, "Upsert", mock.Anything, mock.MatchedBy(func(s *endpoint.StatusSnapshot) bool {
		return s.EndpointID == 9 && s.State == vo.HealthStateUnknown
	}))
}

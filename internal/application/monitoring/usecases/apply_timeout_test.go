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
)

func TestApplyTimeoutPromotesRecommendation(t *testing.T) {
	endpointRepo := &mockEndpointRepo{}
	statusRepo := &mockStatusRepo{}
	publisher := &mockStatusPublisher{}
	store := monitoring.NewStatusStore(20, 5000, 120000)
	uc := NewApplyTimeoutUseCase(endpointRepo, statusRepo, store, publisher, noopLogger{})

	ep := testEndpoint(1)
	endpointRepo.On("GetByID", mock.Anything, uint(1)).Return(ep, nil)
	statusRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishStatusUpdate", mock.Anything, mock.Anything).Return(nil)

	// a slow success pushes the recommendation above the default
	result := &endpoint.ProbeResult{
		Success:        true,
		Timing:         endpoint.ProbeTiming{TotalMs: 20000},
		ConnectionType: vo.ConnectionTypeDirect,
	}
	store.BeginProbe(1, func() {})
	store.FinishProbe(1, result, testThresholds(), time.Now().UTC())

	out, err := uc.Execute(context.Background(), ApplyTimeoutCommand{EndpointID: 1})

	assert.NoError(t, err)
	assert.Equal(t, uint32(60000), out.RecommendedTimeoutMs)
	assert.Equal(t, uint32(60000), out.CurrentTimeoutMs)
	assert.Equal(t, uint32(60000), store.CurrentTimeout(1))
	statusRepo.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
	publisher.AssertCalled(t, "PublishStatusUpdate", mock.Anything, mock.Anything)
}

func TestProbeNeverAdvancesCurrentTimeout(t *testing.T) {
	store := monitoring.NewStatusStore(20, 5000, 120000)

	result := &endpoint.ProbeResult{
		Success:        true,
		Timing:         endpoint.ProbeTiming{TotalMs: 20000},
		ConnectionType: vo.ConnectionTypeDirect,
	}
	store.BeginProbe(1, func() {})
	store.FinishProbe(1, result, testThresholds(), time.Now().UTC())

	// calibration produced a recommendation but the budget is unchanged
	view, _ := store.View(1)
	assert.Equal(t, uint32(60000), view.Policy.RecommendedMs)
	assert.Equal(t, uint32(30000), view.Policy.CurrentMs)
}

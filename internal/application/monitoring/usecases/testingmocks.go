package usecases

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/cache"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/shared/logger"
)

type mockEndpointRepo struct {
	mock.Mock
}

func (m *mockEndpointRepo) Create(ctx context.Context, ep *endpoint.Endpoint) error {
	args := m.Called(ctx, ep)
	return args.Error(0)
}

func (m *mockEndpointRepo) GetByID(ctx context.Context, id uint) (*endpoint.Endpoint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*endpoint.Endpoint), args.Error(1)
}

func (m *mockEndpointRepo) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*endpoint.Endpoint), args.Error(1)
}

func (m *mockEndpointRepo) List(ctx context.Context) ([]*endpoint.Endpoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*endpoint.Endpoint), args.Error(1)
}

func (m *mockEndpointRepo) Update(ctx context.Context, ep *endpoint.Endpoint) error {
	args := m.Called(ctx, ep)
	return args.Error(0)
}

type mockStatusRepo struct {
	mock.Mock
}

func (m *mockStatusRepo) Upsert(ctx context.Context, snapshot *endpoint.StatusSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockStatusRepo) Get(ctx context.Context, endpointID uint) (*endpoint.StatusSnapshot, error) {
	args := m.Called(ctx, endpointID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*endpoint.StatusSnapshot), args.Error(1)
}

func (m *mockStatusRepo) ListAll(ctx context.Context) ([]*endpoint.StatusSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*endpoint.StatusSnapshot), args.Error(1)
}

func (m *mockStatusRepo) Delete(ctx context.Context, endpointID uint) error {
	args := m.Called(ctx, endpointID)
	return args.Error(0)
}

type mockProbeRecordRepo struct {
	mock.Mock
}

func (m *mockProbeRecordRepo) Append(ctx context.Context, record *endpoint.ProbeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockProbeRecordRepo) ListRecent(ctx context.Context, endpointID uint, limit int) ([]*endpoint.ProbeRecord, error) {
	args := m.Called(ctx, endpointID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*endpoint.ProbeRecord), args.Error(1)
}

type mockEpisodeRepo struct {
	mock.Mock
}

func (m *mockEpisodeRepo) Create(ctx context.Context, episode *alert.Episode) error {
	args := m.Called(ctx, episode)
	return args.Error(0)
}

func (m *mockEpisodeRepo) Update(ctx context.Context, episode *alert.Episode) error {
	args := m.Called(ctx, episode)
	return args.Error(0)
}

func (m *mockEpisodeRepo) ListActive(ctx context.Context) ([]*alert.Episode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alert.Episode), args.Error(1)
}

func (m *mockEpisodeRepo) ListByEndpoint(ctx context.Context, endpointID uint, limit int) ([]*alert.Episode, error) {
	args := m.Called(ctx, endpointID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*alert.Episode), args.Error(1)
}

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, ep *endpoint.Endpoint, timeoutMs uint32) *endpoint.ProbeResult {
	args := m.Called(ctx, ep, timeoutMs)
	return args.Get(0).(*endpoint.ProbeResult)
}

type mockAlertSink struct {
	mock.Mock
}

func (m *mockAlertSink) Emit(ctx context.Context, event alert.Event) {
	m.Called(ctx, event)
}

type mockNotifyLock struct {
	mock.Mock
}

func (m *mockNotifyLock) TryAcquire(ctx context.Context, kind alert.Kind, endpointID uint, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, kind, endpointID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifyLock) Release(ctx context.Context, kind alert.Kind, endpointID uint) error {
	args := m.Called(ctx, kind, endpointID)
	return args.Error(0)
}

type mockFleetCache struct {
	mock.Mock
}

func (m *mockFleetCache) Get(ctx context.Context) (*cache.FleetCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.FleetCounts), args.Error(1)
}

func (m *mockFleetCache) Set(ctx context.Context, counts *cache.FleetCounts) error {
	args := m.Called(ctx, counts)
	return args.Error(0)
}

func (m *mockFleetCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockStatusPublisher struct {
	mock.Mock
}

func (m *mockStatusPublisher) PublishStatusUpdate(ctx context.Context, update pubsub.StatusUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}
func (l noopLogger) With(...any) logger.Interface { return l }
func (l noopLogger) Named(string) logger.Interface { return l }
func (noopLogger) Debugw(string, ...interface{}) {}
func (noopLogger) Infow(string, ...interface{}) {}
func (noopLogger) Warnw(string, ...interface{}) {}
func (noopLogger) Errorw(string, ...interface{}) {}
func (noopLogger) Fatalw(string, ...interface{}) {}

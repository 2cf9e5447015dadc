// Package scheduler drives the periodic health check cycle. All check
// triggers, whether the periodic tick, a wake signal or a manual re-check,
// funnel through one channel into a single dispatch loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/semaphore"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/goroutine"
	"hyperfleet/internal/shared/logger"
)

// CheckRunner executes the health check pipeline for one endpoint.
type CheckRunner interface {
	RunCheck(ctx context.Context, endpointID uint) error
}

// CheckRunnerFunc adapts a function to CheckRunner.
type CheckRunnerFunc func(ctx context.Context, endpointID uint) error

func (f CheckRunnerFunc) RunCheck(ctx context.Context, endpointID uint) error {
	return f(ctx, endpointID)
}

// trigger is one unit of work for the dispatch loop. EndpointID 0 means a
// full fleet cycle.
type trigger struct {
	endpointID uint
}

// MonitorScheduler owns the check cycle: a gocron periodic tick feeds the
// trigger channel alongside Wake and CheckNow, and the dispatch loop fans
// probes out under a weighted semaphore. Per-endpoint coalescing happens in
// the status store, so a trigger that lands while a probe is in flight
// folds into it instead of stacking.
type MonitorScheduler struct {
	scheduler    gocron.Scheduler
	endpointRepo endpoint.Repository
	statusRepo   endpoint.StatusRepository
	store        *monitoring.StatusStore
	runner       CheckRunner
	sem          *semaphore.Weighted
	interval     time.Duration
	triggers     chan trigger
	logger       logger.Interface

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func NewMonitorScheduler(
	endpointRepo endpoint.Repository,
	statusRepo endpoint.StatusRepository,
	store *monitoring.StatusStore,
	runner CheckRunner,
	interval time.Duration,
	maxConcurrent int64,
	log logger.Interface,
) (*MonitorScheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &MonitorScheduler{
		scheduler:    scheduler,
		endpointRepo: endpointRepo,
		statusRepo:   statusRepo,
		store:        store,
		runner:       runner,
		sem:          semaphore.NewWeighted(maxConcurrent),
		interval:     interval,
		triggers:     make(chan trigger, 64),
		logger:       log.Named("monitor-scheduler"),
	}, nil
}

// Start registers the periodic tick and launches the dispatch loop.
func (m *MonitorScheduler) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			m.push(trigger{})
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("monitor", "health-check"),
		gocron.WithName("health-check-cycle"),
	)
	if err != nil {
		cancel()
		return err
	}

	m.wg.Add(1)
	goroutine.SafeGo(m.logger, "monitor-dispatch", func() {
		defer m.wg.Done()
		m.dispatchLoop(ctx)
	})

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("monitor scheduler started", "interval", m.interval)
	return nil
}

// Stop shuts the tick and dispatch loop down and waits for them.
func (m *MonitorScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}

	if err := m.scheduler.Shutdown(); err != nil {
		m.logger.Warnw("gocron shutdown failed", "error", err)
	}
	m.cancel()
	m.wg.Wait()
	m.started = false
	m.logger.Infow("monitor scheduler stopped")
	return nil
}

// Wake requests an immediate full cycle, used when a dashboard session
// resumes or regains visibility and wants fresh data now.
func (m *MonitorScheduler) Wake() {
	m.push(trigger{})
}

// CheckNow requests an immediate re-check of one endpoint.
func (m *MonitorScheduler) CheckNow(endpointID uint) {
	m.push(trigger{endpointID: endpointID})
}

// push enqueues a trigger without blocking. A full queue means a burst of
// triggers is already pending; dropping one loses nothing since cycles are
// idempotent and probes coalesce.
func (m *MonitorScheduler) push(t trigger) {
	select {
	case m.triggers <- t:
	default:
		m.logger.Debugw("trigger queue full, dropping trigger", "endpoint_id", t.endpointID)
	}
}

func (m *MonitorScheduler) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.triggers:
			if t.endpointID != 0 {
				m.dispatchOne(ctx, t.endpointID)
			} else {
				m.runCycle(ctx)
			}
		}
	}
}

// runCycle sweeps stale checking states, then dispatches a probe for every
// active endpoint under the concurrency bound.
func (m *MonitorScheduler) runCycle(ctx context.Context) {
	m.sweepStale(ctx)

	endpoints, err := m.endpointRepo.ListActive(ctx)
	if err != nil {
		m.logger.Errorw("failed to list endpoints for check cycle", "error", err)
		return
	}

	m.logger.Debugw("check cycle started", "endpoints", len(endpoints))
	for _, ep := range endpoints {
		m.dispatchOne(ctx, ep.ID())
	}
}

func (m *MonitorScheduler) dispatchOne(ctx context.Context, endpointID uint) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return
	}

	goroutine.SafeGo(m.logger, "health-check", func() {
		defer m.sem.Release(1)
		if err := m.runner.RunCheck(ctx, endpointID); err != nil {
			m.logger.Warnw("health check failed to run", "endpoint_id", endpointID, "error", err)
		}
	})
}

// sweepStale rolls endpoints stuck in checking back to unknown before a new
// cycle starts, so a crashed probe cannot pin checking forever. The age
// bound is twice the interval: any probe legitimately in flight finished or
// timed out long before that.
func (m *MonitorScheduler) sweepStale(ctx context.Context) {
	rolled := m.store.SweepStale(2 * m.interval)
	for _, id := range rolled {
		m.logger.Warnw("rolled stale checking state back to unknown", "endpoint_id", id)
		if snapshot, ok := m.store.Snapshot(id); ok {
			if err := m.statusRepo.Upsert(ctx, snapshot); err != nil {
				m.logger.Errorw("failed to persist rollback", "endpoint_id", id, "error", err)
			}
		}
	}
}

// Package monitoring holds the live, in-memory health state of the fleet:
// one tracker and timeout policy per endpoint, guarded by a per-endpoint
// lock so probe results, operator actions and reconciled remote updates
// serialize per endpoint without a global bottleneck.
package monitoring

import (
	"context"
	"sync"
	"time"

	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// StatusView is a read-only snapshot of one endpoint's live state.
type StatusView struct {
	EndpointID    uint
	State         vo.HealthState
	SuccessRate   float64
	LastCheckedAt time.Time
	LastError     string
	Policy        vo.TimeoutPolicy
}

type entry struct {
	mu        sync.Mutex
	tracker   *endpoint.StatusTracker
	policy    vo.TimeoutPolicy
	inFlight  bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// StatusStore is the authoritative in-memory state for this instance.
// Persistence mirrors it; on restart it is warmed from the snapshots.
type StatusStore struct {
	mu         sync.RWMutex
	entries    map[uint]*entry
	windowSize int
	floorMs    uint32
	ceilingMs  uint32
}

func NewStatusStore(windowSize int, floorMs, ceilingMs uint32) *StatusStore {
	return &StatusStore{
		entries:    make(map[uint]*entry),
		windowSize: windowSize,
		floorMs:    floorMs,
		ceilingMs:  ceilingMs,
	}
}

// Load warms the store from persisted snapshots on startup.
func (s *StatusStore) Load(snapshots []*endpoint.StatusSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		s.entries[snap.EndpointID] = &entry{
			tracker: endpoint.RestoreStatusTracker(
				s.windowSize, snap.State, snap.SuccessRate, snap.LastCheckedAt, snap.LastError,
			),
			policy: snap.Policy,
		}
	}
}

// BeginProbe marks the endpoint as checking and registers the probe's
// cancel function. It returns false when a probe is already in flight for
// this endpoint, which is how concurrent triggers coalesce into one probe.
func (s *StatusStore) BeginProbe(endpointID uint, cancel context.CancelFunc) bool {
	e := s.ensure(endpointID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight {
		return false
	}
	e.inFlight = true
	e.startedAt = time.Now()
	e.cancel = cancel
	e.tracker.MarkChecking()
	return true
}

// FinishProbe folds a probe result into the endpoint's tracker, derives the
// next timeout recommendation, and releases the in-flight marker. It
// returns the observed transition, the updated policy, and whether the
// endpoint is still tracked: a probe whose endpoint was deactivated while
// it ran must not resurrect the removed entry, so its result is dropped.
func (s *StatusStore) FinishProbe(endpointID uint, result *endpoint.ProbeResult, th endpoint.Thresholds, at time.Time) (endpoint.Transition, vo.TimeoutPolicy, bool) {
	e := s.lookup(endpointID)
	if e == nil {
		return endpoint.Transition{}, vo.TimeoutPolicy{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	transition := e.tracker.Apply(endpointID, result, th, at)
	if result.Success {
		e.policy = e.policy.RecommendFromSuccess(result.Timing.TotalMs)
	} else {
		e.policy = e.policy.RecommendFromFailure()
	}

	e.inFlight = false
	e.cancel = nil
	return transition, e.policy, true
}

// AbortProbe releases the in-flight marker without a result and rolls a
// stuck checking state back to unknown. Used when dispatch fails before the
// probe ran.
func (s *StatusStore) AbortProbe(endpointID uint) {
	e := s.lookup(endpointID)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	e.cancel = nil
	e.tracker.Rollback()
}

// CurrentTimeout returns the timeout budget the next probe must honor.
func (s *StatusStore) CurrentTimeout(endpointID uint) uint32 {
	e := s.ensure(endpointID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.CurrentMs
}

// ApplyTimeout promotes the endpoint's recommendation to its authoritative
// timeout and returns the updated policy.
func (s *StatusStore) ApplyTimeout(endpointID uint) vo.TimeoutPolicy {
	e := s.ensure(endpointID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = e.policy.ApplyRecommendation()
	return e.policy
}

// ApplyExternal merges a status update pushed by another instance. The
// update wins only when its timestamp is strictly newer than the local
// lastCheckedAt; equal or older updates are stale echoes and are dropped.
// Untracked endpoints are dropped too: a deactivation broadcast must not
// recreate the entry on peers, and a not-yet-tracked active endpoint picks
// its state up on the next local cycle. Returns whether the update was
// applied.
func (s *StatusStore) ApplyExternal(endpointID uint, state vo.HealthState, successRate float64, checkedAt time.Time, lastError string, currentMs, recommendedMs uint32) bool {
	e := s.lookup(endpointID)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !checkedAt.After(e.tracker.LastCheckedAt()) {
		return false
	}

	e.tracker = endpoint.RestoreStatusTracker(s.windowSize, state, successRate, checkedAt, lastError)
	if currentMs != 0 {
		e.policy.CurrentMs = currentMs
	}
	if recommendedMs != 0 {
		e.policy.RecommendedMs = recommendedMs
	}
	return true
}

// SweepStale rolls endpoints stuck in checking back to unknown. An entry is
// stuck when its probe has been in flight longer than maxAge (the probe
// itself is bounded by its timeout, so this only fires after a fault) or
// when checking survived without any probe in flight. Returns the affected
// endpoint ids.
func (s *StatusStore) SweepStale(maxAge time.Duration) []uint {
	s.mu.RLock()
	ids := make([]uint, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var rolled []uint
	for _, id := range ids {
		e := s.lookup(id)
		if e == nil {
			continue
		}
		e.mu.Lock()
		if e.inFlight && time.Since(e.startedAt) > maxAge {
			if e.cancel != nil {
				e.cancel()
			}
			e.inFlight = false
			e.cancel = nil
		}
		if !e.inFlight && e.tracker.Rollback() {
			rolled = append(rolled, id)
		}
		e.mu.Unlock()
	}
	return rolled
}

// Deactivate cancels any in-flight probe and removes the endpoint from the
// live store.
func (s *StatusStore) Deactivate(endpointID uint) {
	s.mu.Lock()
	e := s.entries[endpointID]
	delete(s.entries, endpointID)
	s.mu.Unlock()

	if e == nil {
		return
	}
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.inFlight = false
	e.cancel = nil
	e.tracker.Reset()
	e.mu.Unlock()
}

// View returns a snapshot of one endpoint, or false if it is not tracked.
func (s *StatusStore) View(endpointID uint) (StatusView, bool) {
	s.mu.RLock()
	e := s.entries[endpointID]
	s.mu.RUnlock()
	if e == nil {
		return StatusView{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.view(endpointID, e), true
}

// ViewAll returns snapshots for every tracked endpoint.
func (s *StatusStore) ViewAll() []StatusView {
	s.mu.RLock()
	ids := make([]uint, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	views := make([]StatusView, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.View(id); ok {
			views = append(views, v)
		}
	}
	return views
}

// Snapshot converts an endpoint's live state to its persisted form.
func (s *StatusStore) Snapshot(endpointID uint) (*endpoint.StatusSnapshot, bool) {
	v, ok := s.View(endpointID)
	if !ok {
		return nil, false
	}
	return &endpoint.StatusSnapshot{
		EndpointID:    v.EndpointID,
		State:         v.State,
		SuccessRate:   v.SuccessRate,
		LastCheckedAt: v.LastCheckedAt,
		LastError:     v.LastError,
		Policy:        v.Policy,
	}, true
}

func (s *StatusStore) view(endpointID uint, e *entry) StatusView {
	return StatusView{
		EndpointID:    endpointID,
		State:         e.tracker.State(),
		SuccessRate:   e.tracker.SuccessRate(),
		LastCheckedAt: e.tracker.LastCheckedAt(),
		LastError:     e.tracker.LastError(),
		Policy:        e.policy,
	}
}

func (s *StatusStore) lookup(endpointID uint) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[endpointID]
}

func (s *StatusStore) ensure(endpointID uint) *entry {
	if e := s.lookup(endpointID); e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entries[endpointID]; e != nil {
		return e
	}
	e := &entry{
		tracker: endpoint.NewStatusTracker(s.windowSize),
		policy:  vo.NewTimeoutPolicy(s.floorMs, s.ceilingMs),
	}
	s.entries[endpointID] = e
	return e
}

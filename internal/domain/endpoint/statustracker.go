package endpoint

import (
	"time"

	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// DefaultStatusWindow is the number of recent probe outcomes the rolling
// success rate is computed over.
const DefaultStatusWindow = 20

// Thresholds are the configuration inputs that decide online vs degraded.
type Thresholds struct {
	// SuccessRate is the minimum rolling success percentage for online, in [0,100].
	SuccessRate float64
	// LatencyMs is the maximum probe round-trip for online.
	LatencyMs uint32
}

// Transition is one observed state change for an endpoint. From is the last
// resolved state, never the transient checking hop, so consumers see clean
// edges (online -> offline, not online -> checking -> offline).
type Transition struct {
	EndpointID  uint
	From        vo.HealthState
	To          vo.HealthState
	SuccessRate float64
	LatencyMs   uint32
	At          time.Time
}

// StatusTracker converts a sequence of probe results for one endpoint into
// a debounced health status. It is not safe for concurrent use; callers
// hold the per-endpoint lock.
type StatusTracker struct {
	state         vo.HealthState
	resolved      vo.HealthState
	window        []bool
	windowSize    int
	lastCheckedAt time.Time
	lastError     string
}

// NewStatusTracker creates a tracker in the unknown state.
func NewStatusTracker(windowSize int) *StatusTracker {
	if windowSize <= 0 {
		windowSize = DefaultStatusWindow
	}
	return &StatusTracker{
		state:      vo.HealthStateUnknown,
		resolved:   vo.HealthStateUnknown,
		windowSize: windowSize,
	}
}

// RestoreStatusTracker reconstructs a tracker from persisted status fields.
// The rolling window restarts empty; the persisted rate is kept until the
// first new outcome replaces it.
func RestoreStatusTracker(windowSize int, state vo.HealthState, successRate float64, lastCheckedAt time.Time, lastError string) *StatusTracker {
	t := NewStatusTracker(windowSize)
	if state.IsResolved() {
		t.state = state
		t.resolved = state
	}
	t.seedRate(successRate)
	t.lastCheckedAt = lastCheckedAt
	t.lastError = lastError
	return t
}

// MarkChecking enters the transient checking state the instant a probe is
// dispatched, so observers get immediate feedback that a check is underway.
func (t *StatusTracker) MarkChecking() {
	t.state = vo.HealthStateChecking
}

// Apply folds one probe result into the tracker and returns the resulting
// transition edge.
func (t *StatusTracker) Apply(endpointID uint, result *ProbeResult, th Thresholds, at time.Time) Transition {
	t.push(result.Success)
	rate := t.SuccessRate()

	var next vo.HealthState
	switch {
	case !result.Success:
		next = vo.HealthStateOffline
	case rate >= th.SuccessRate && result.Timing.TotalMs < th.LatencyMs:
		next = vo.HealthStateOnline
	default:
		next = vo.HealthStateDegraded
	}

	from := t.resolved
	t.state = next
	t.resolved = next
	t.lastCheckedAt = at
	if result.Success {
		t.lastError = ""
	} else {
		t.lastError = result.ErrorMessage
	}

	return Transition{
		EndpointID:  endpointID,
		From:        from,
		To:          next,
		SuccessRate: rate,
		LatencyMs:   result.Timing.TotalMs,
		At:          at,
	}
}

// Rollback resets a stuck checking state to unknown. Returns true if the
// tracker was in checking. Used when a dispatched probe never returned.
func (t *StatusTracker) Rollback() bool {
	if t.state != vo.HealthStateChecking {
		return false
	}
	t.state = vo.HealthStateUnknown
	t.resolved = vo.HealthStateUnknown
	return true
}

// Reset returns the tracker to its initial state. Used on endpoint
// deactivation.
func (t *StatusTracker) Reset() {
	t.state = vo.HealthStateUnknown
	t.resolved = vo.HealthStateUnknown
	t.window = t.window[:0]
	t.lastCheckedAt = time.Time{}
	t.lastError = ""
}

// SuccessRate returns the rolling success percentage in [0,100].
func (t *StatusTracker) SuccessRate() float64 {
	if len(t.window) == 0 {
		return 0
	}
	successes := 0
	for _, ok := range t.window {
		if ok {
			successes++
		}
	}
	return float64(successes) / float64(len(t.window)) * 100
}

func (t *StatusTracker) State() vo.HealthState    { return t.state }
func (t *StatusTracker) LastCheckedAt() time.Time { return t.lastCheckedAt }
func (t *StatusTracker) LastError() string        { return t.lastError }

func (t *StatusTracker) push(success bool) {
	t.window = append(t.window, success)
	if len(t.window) > t.windowSize {
		t.window = t.window[1:]
	}
}

// seedRate pre-fills the window to approximate a persisted success rate, so
// a restart does not treat an established endpoint as brand new.
func (t *StatusTracker) seedRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	successes := int(rate/100*float64(t.windowSize) + 0.5)
	for i := 0; i < t.windowSize; i++ {
		t.window = append(t.window, i < successes)
	}
}

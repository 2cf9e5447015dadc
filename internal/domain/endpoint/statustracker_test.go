package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

var trackerThresholds = Thresholds{SuccessRate: 80, LatencyMs: 500}

func success(totalMs uint32) *ProbeResult {
	return &ProbeResult{Success: true, Timing: ProbeTiming{TotalMs: totalMs}}
}

func failure(message string) *ProbeResult {
	return &ProbeResult{Success: false, ErrorMessage: message}
}

func TestTrackerStartsUnknown(t *testing.T) {
	tr := NewStatusTracker(20)
	assert.Equal(t, vo.HealthStateUnknown, tr.State())
	assert.Equal(t, float64(0), tr.SuccessRate())
}

func TestTrackerFastSuccessGoesOnline(t *testing.T) {
	tr := NewStatusTracker(20)
	tr.MarkChecking()

	transition := tr.Apply(1, success(120), trackerThresholds, time.Now().UTC())

	assert.Equal(t, vo.HealthStateUnknown, transition.From)
	assert.Equal(t, vo.HealthStateOnline, transition.To)
	assert.Equal(t, float64(100), transition.SuccessRate)
}

func TestTrackerSlowSuccessGoesDegraded(t *testing.T) {
	tr := NewStatusTracker(20)
	tr.MarkChecking()

	transition := tr.Apply(1, success(900), trackerThresholds, time.Now().UTC())

	assert.Equal(t, vo.HealthStateDegraded, transition.To)
}

func TestTrackerFailureGoesOffline(t *testing.T) {
	tr := NewStatusTracker(20)
	tr.MarkChecking()

	transition := tr.Apply(1, failure("connection refused"), trackerThresholds, time.Now().UTC())

	assert.Equal(t, vo.HealthStateOffline, transition.To)
	assert.Equal(t, "connection refused", tr.LastError())
}

func TestTrackerLowRateGoesDegraded(t *testing.T) {
	tr := NewStatusTracker(20)
	at := time.Now().UTC()

	// one failure then one fast success: 50% rate is below the threshold
	tr.MarkChecking()
	tr.Apply(1, failure("timeout"), trackerThresholds, at)
	tr.MarkChecking()
	transition := tr.Apply(1, success(100), trackerThresholds, at)

	assert.Equal(t, vo.HealthStateDegraded, transition.To)
	assert.Equal(t, float64(50), transition.SuccessRate)
	// a success clears the error message
	assert.Equal(t, "", tr.LastError())
}

func TestTrackerTransitionEdgesSkipChecking(t *testing.T) {
	tr := NewStatusTracker(20)
	at := time.Now().UTC()

	tr.MarkChecking()
	first := tr.Apply(1, success(100), trackerThresholds, at)
	tr.MarkChecking()
	second := tr.Apply(1, failure("refused"), trackerThresholds, at)

	assert.Equal(t, vo.HealthStateUnknown, first.From)
	// the edge is online -> offline, never online -> checking
	assert.Equal(t, vo.HealthStateOnline, second.From)
	assert.Equal(t, vo.HealthStateOffline, second.To)
}

func TestTrackerRollbackOnlyFromChecking(t *testing.T) {
	tr := NewStatusTracker(20)

	assert.False(t, tr.Rollback())

	tr.MarkChecking()
	assert.True(t, tr.Rollback())
	assert.Equal(t, vo.HealthStateUnknown, tr.State())

	tr.MarkChecking()
	tr.Apply(1, success(100), trackerThresholds, time.Now().UTC())
	assert.False(t, tr.Rollback())
	assert.Equal(t, vo.HealthStateOnline, tr.State())
}

func TestTrackerSuccessRateWindowBounded(t *testing.T) {
	tr := NewStatusTracker(5)
	at := time.Now().UTC()

	for i := 0; i < 5; i++ {
		tr.Apply(1, failure("down"), trackerThresholds, at)
	}
	assert.Equal(t, float64(0), tr.SuccessRate())

	// five successes push all failures out of the five-slot window
	for i := 0; i < 5; i++ {
		tr.Apply(1, success(100), trackerThresholds, at)
	}
	assert.Equal(t, float64(100), tr.SuccessRate())
}

func TestTrackerSuccessRateWithinBounds(t *testing.T) {
	tr := NewStatusTracker(20)
	at := time.Now().UTC()

	results := []*ProbeResult{
		success(100), failure("x"), success(100), success(900),
		failure("y"), success(50), failure("z"), success(100),
	}
	for _, r := range results {
		tr.Apply(1, r, trackerThresholds, at)
		rate := tr.SuccessRate()
		assert.GreaterOrEqual(t, rate, float64(0))
		assert.LessOrEqual(t, rate, float64(100))
	}
}

func TestRestoreTrackerSeedsPersistedRate(t *testing.T) {
	at := time.Now().UTC().Add(-time.Minute)
	tr := RestoreStatusTracker(20, vo.HealthStateDegraded, 60, at, "slow")

	assert.Equal(t, vo.HealthStateDegraded, tr.State())
	assert.InDelta(t, 60, tr.SuccessRate(), 1)
	assert.Equal(t, at, tr.LastCheckedAt())
	assert.Equal(t, "slow", tr.LastError())
}

func TestRestoreTrackerIgnoresTransientState(t *testing.T) {
	tr := RestoreStatusTracker(20, vo.HealthStateChecking, 50, time.Now().UTC(), "")
	assert.Equal(t, vo.HealthStateUnknown, tr.State())
}

func TestTrackerReset(t *testing.T) {
	tr := NewStatusTracker(20)
	tr.MarkChecking()
	tr.Apply(1, failure("down"), trackerThresholds, time.Now().UTC())

	tr.Reset()

	assert.Equal(t, vo.HealthStateUnknown, tr.State())
	assert.Equal(t, float64(0), tr.SuccessRate())
	assert.Equal(t, "", tr.LastError())
	assert.True(t, tr.LastCheckedAt().IsZero())
}

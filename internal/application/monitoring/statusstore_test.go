package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

var th = endpoint.Thresholds{SuccessRate: 80, LatencyMs: 500}

func okResult(totalMs uint32) *endpoint.ProbeResult {
	return &endpoint.ProbeResult{
		Success:        true,
		Timing:         endpoint.ProbeTiming{TotalMs: totalMs},
		ConnectionType: vo.ConnectionTypeDirect,
	}
}

func TestBeginProbeCoalesces(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	assert.True(t, store.BeginProbe(1, func() {}))
	assert.False(t, store.BeginProbe(1, func() {}))
	assert.False(t, store.BeginProbe(1, func() {}))

	store.FinishProbe(1, okResult(100), th, time.Now().UTC())
	assert.True(t, store.BeginProbe(1, func() {}))
}

func TestFinishProbeResolvesChecking(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	store.BeginProbe(1, func() {})
	view, _ := store.View(1)
	assert.Equal(t, vo.HealthStateChecking, view.State)

	transition, policy, tracked := store.FinishProbe(1, okResult(100), th, time.Now().UTC())

	assert.True(t, tracked)
	assert.Equal(t, vo.HealthStateUnknown, transition.From)
	assert.Equal(t, vo.HealthStateOnline, transition.To)
	assert.Equal(t, uint32(5000), policy.RecommendedMs)

	view, _ = store.View(1)
	assert.Equal(t, vo.HealthStateOnline, view.State)
}

func TestSweepStaleRollsBackChecking(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	cancelled := false
	store.BeginProbe(1, func() { cancelled = true })

	// fresh probes are left alone
	rolled := store.SweepStale(time.Hour)
	assert.Empty(t, rolled)
	assert.False(t, cancelled)

	// anything older than maxAge is cancelled and rolled back to unknown
	rolled = store.SweepStale(0)
	assert.Equal(t, []uint{1}, rolled)
	assert.True(t, cancelled)

	view, _ := store.View(1)
	assert.Equal(t, vo.HealthStateUnknown, view.State)
	assert.True(t, store.BeginProbe(1, func() {}))
}

func TestApplyExternalTimestampRule(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)
	now := time.Now().UTC()

	store.BeginProbe(1, func() {})
	store.FinishProbe(1, okResult(100), th, now)

	// strictly newer wins
	assert.True(t, store.ApplyExternal(1, vo.HealthStateOffline, 10, now.Add(time.Second), "refused", 45000, 45000))
	view, _ := store.View(1)
	assert.Equal(t, vo.HealthStateOffline, view.State)
	assert.Equal(t, uint32(45000), view.Policy.CurrentMs)

	// equal or older loses
	assert.False(t, store.ApplyExternal(1, vo.HealthStateOnline, 99, now.Add(time.Second), "", 0, 0))
	assert.False(t, store.ApplyExternal(1, vo.HealthStateOnline, 99, now, "", 0, 0))
	view, _ = store.View(1)
	assert.Equal(t, vo.HealthStateOffline, view.State)
}

func TestLoadWarmsFromSnapshots(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)
	at := time.Now().UTC().Add(-time.Minute)

	policy := vo.NewTimeoutPolicy(5000, 120000)
	policy.CurrentMs = 42000
	store.Load([]*endpoint.StatusSnapshot{{
		EndpointID:    7,
		State:         vo.HealthStateDegraded,
		SuccessRate:   60,
		LastCheckedAt: at,
		LastError:     "slow",
		Policy:        policy,
	}})

	view, ok := store.View(7)
	assert.True(t, ok)
	assert.Equal(t, vo.HealthStateDegraded, view.State)
	assert.InDelta(t, 60, view.SuccessRate, 1)
	assert.Equal(t, uint32(42000), store.CurrentTimeout(7))
	assert.Equal(t, "slow", view.LastError)
}

func TestDeactivateRemovesEntryAndCancels(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	cancelled := false
	store.BeginProbe(3, func() { cancelled = true })
	store.Deactivate(3)

	assert.True(t, cancelled)
	_, ok := store.View(3)
	assert.False(t, ok)
}

func TestFinishProbeAfterDeactivateDropsResult(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	store.BeginProbe(1, func() {})
	store.Deactivate(1)

	// the canceled probe's result arrives after removal and must not
	// resurrect the entry
	fail := endpoint.NewFailedProbeResult(vo.ErrorStageTCP, "context canceled", vo.ConnectionTypeDirect, 10)
	transition, _, tracked := store.FinishProbe(1, fail, th, time.Now().UTC())

	assert.False(t, tracked)
	assert.Equal(t, endpoint.Transition{}, transition)
	_, ok := store.View(1)
	assert.False(t, ok)
}

func TestApplyExternalIgnoresUntrackedEndpoint(t *testing.T) {
	store := NewStatusStore(20, 5000, 120000)

	store.BeginProbe(2, func() {})
	store.FinishProbe(2, okResult(100), th, time.Now().UTC())
	store.Deactivate(2)

	// a remote broadcast for a removed endpoint must not recreate it
	applied := store.ApplyExternal(2, vo.HealthStateUnknown, 0, time.Now().UTC().Add(time.Second), "", 0, 0)

	assert.False(t, applied)
	_, ok := store.View(2)
	assert.False(t, ok)
}

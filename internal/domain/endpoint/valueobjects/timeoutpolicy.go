package valueobjects

// Default timeout bounds in milliseconds. These are fallbacks; deployments
// override them through the monitor configuration block.
const (
	DefaultTimeoutFloorMs   uint32 = 5000
	DefaultTimeoutCeilingMs uint32 = 120000
	DefaultTimeoutMs        uint32 = 30000
)

// TimeoutPolicy holds the per-endpoint probe timeout budget.
// CurrentMs is authoritative for the next probe and for real hypervisor
// calls; RecommendedMs is the calibrator's latest suggestion. CurrentMs
// only advances through ApplyRecommendation, invoked by an operator or
// policy action.
type TimeoutPolicy struct {
	CurrentMs     uint32
	RecommendedMs uint32
	FloorMs       uint32
	CeilingMs     uint32
}

// NewTimeoutPolicy builds a policy with the given bounds. Zero bounds fall
// back to the package defaults.
func NewTimeoutPolicy(floorMs, ceilingMs uint32) TimeoutPolicy {
	if floorMs == 0 {
		floorMs = DefaultTimeoutFloorMs
	}
	if ceilingMs == 0 {
		ceilingMs = DefaultTimeoutCeilingMs
	}
	current := DefaultTimeoutMs
	if current < floorMs {
		current = floorMs
	}
	if current > ceilingMs {
		current = ceilingMs
	}
	return TimeoutPolicy{
		CurrentMs:     current,
		RecommendedMs: current,
		FloorMs:       floorMs,
		CeilingMs:     ceilingMs,
	}
}

// RecommendFromSuccess derives a recommendation from an observed round-trip.
// A 3x multiplier over the single observed sample gives slack for tail
// latency without a persisted latency distribution.
func (p TimeoutPolicy) RecommendFromSuccess(totalMs uint32) TimeoutPolicy {
	p.RecommendedMs = p.clamp(uint64(totalMs) * 3)
	return p
}

// RecommendFromFailure widens the budget after a failed probe: the most
// common cause of failure is the existing timeout being too tight.
func (p TimeoutPolicy) RecommendFromFailure() TimeoutPolicy {
	p.RecommendedMs = p.clamp(uint64(p.CurrentMs) * 3 / 2)
	return p
}

// ApplyRecommendation promotes the recommendation to the authoritative
// timeout. Calibration itself never touches CurrentMs.
func (p TimeoutPolicy) ApplyRecommendation() TimeoutPolicy {
	p.CurrentMs = p.RecommendedMs
	return p
}

func (p TimeoutPolicy) clamp(ms uint64) uint32 {
	if ms < uint64(p.FloorMs) {
		return p.FloorMs
	}
	if ms > uint64(p.CeilingMs) {
		return p.CeilingMs
	}
	return uint32(ms)
}

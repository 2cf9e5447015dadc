package valueobjects

import "fmt"

// HealthState is the debounced connectivity state of an endpoint.
// checking is strictly transient: every entry into checking must resolve to
// online/degraded/offline within one probe cycle or be rolled back to unknown.
type HealthState string

const (
	HealthStateUnknown  HealthState = "unknown"
	HealthStateChecking HealthState = "checking"
	HealthStateOnline   HealthState = "online"
	HealthStateDegraded HealthState = "degraded"
	HealthStateOffline  HealthState = "offline"
)

func NewHealthState(state string) (HealthState, error) {
	hs := HealthState(state)

	switch hs {
	case HealthStateUnknown, HealthStateChecking, HealthStateOnline, HealthStateDegraded, HealthStateOffline:
		return hs, nil
	default:
		return "", fmt.Errorf("invalid health state: %s", state)
	}
}

func (hs HealthState) String() string {
	return string(hs)
}

// IsResolved reports whether the state is a settled probe outcome rather
// than a transient or initial state.
func (hs HealthState) IsResolved() bool {
	switch hs {
	case HealthStateOnline, HealthStateDegraded, HealthStateOffline:
		return true
	default:
		return false
	}
}

func (hs HealthState) IsChecking() bool {
	return hs == HealthStateChecking
}

func GetAllHealthStates() []HealthState {
	return []HealthState{
		HealthStateUnknown,
		HealthStateChecking,
		HealthStateOnline,
		HealthStateDegraded,
		HealthStateOffline,
	}
}

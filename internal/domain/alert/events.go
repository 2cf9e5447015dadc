package alert

import "time"

// EventType identifies what an alert event announces.
type EventType string

const (
	EventServerOffline       EventType = "server_offline"
	EventPerformanceDegraded EventType = "performance_degraded"
	EventRecovered           EventType = "recovered"
)

// Event is one operator-facing notification. The hysteresis engine emits at
// most one per episode edge, never one per poll.
type Event struct {
	Type        EventType
	EndpointID  uint
	Kind        Kind
	SuccessRate float64
	LatencyMs   uint32
	At          time.Time
}

package alert

import (
	"fmt"
	"time"
)

// Kind is the alert kind an episode tracks. offline and degraded are
// independent kinds: each can have its own active episode for the same
// endpoint, while online/checking/unknown never carry episodes.
type Kind string

const (
	KindOffline  Kind = "offline"
	KindDegraded Kind = "degraded"
)

func NewKind(value string) (Kind, error) {
	k := Kind(value)
	switch k {
	case KindOffline, KindDegraded:
		return k, nil
	default:
		return "", fmt.Errorf("invalid alert kind: %s", value)
	}
}

// Episode is a continuous span during which a given alert kind is active
// for an endpoint. Invariant: at most one active episode per
// (endpointID, kind) pair at any time.
type Episode struct {
	ID                 uint
	EndpointID         uint
	Kind               Kind
	Active             bool
	OpenedAt           time.Time
	ClosedAt           *time.Time
	ThresholdAtTrigger float64
}

// OpenEpisode starts a new active episode.
func OpenEpisode(endpointID uint, kind Kind, thresholdAtTrigger float64, at time.Time) *Episode {
	return &Episode{
		EndpointID:         endpointID,
		Kind:               kind,
		Active:             true,
		OpenedAt:           at,
		ThresholdAtTrigger: thresholdAtTrigger,
	}
}

// Close deactivates the episode. Closing requires an active episode.
func (e *Episode) Close(at time.Time) error {
	if !e.Active {
		return fmt.Errorf("episode %d for endpoint %d is not active", e.ID, e.EndpointID)
	}
	e.Active = false
	e.ClosedAt = &at
	return nil
}

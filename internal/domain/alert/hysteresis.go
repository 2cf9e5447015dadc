package alert

import (
	"sync"
	"time"

	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// Decision is the outcome of observing one transition: episodes to persist
// and events to deliver. Empty slices mean the transition changed nothing.
type Decision struct {
	Opened []*Episode
	Closed []*Episode
	Events []Event
}

// HysteresisEngine watches state transitions across all endpoints and
// decides when to emit or clear a notification, guaranteeing at-most-once
// per episode. Alerts are edge-triggered: repeated polls in the same state
// never re-fire.
//
// Episodes are held in an arena keyed by endpoint id, with the dedup key
// being (endpointID, kind) rather than (endpointID, state): offline and
// degraded are independent alert kinds.
type HysteresisEngine struct {
	mu       sync.Mutex
	episodes map[uint]map[Kind]*Episode
}

// NewHysteresisEngine creates an engine with no active episodes.
func NewHysteresisEngine() *HysteresisEngine {
	return &HysteresisEngine{
		episodes: make(map[uint]map[Kind]*Episode),
	}
}

// Load primes the arena with episodes that were active before a restart.
// Inactive episodes are ignored.
func (e *HysteresisEngine) Load(episodes []*Episode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ep := range episodes {
		if !ep.Active {
			continue
		}
		e.arena(ep.EndpointID)[ep.Kind] = ep
	}
}

// Observe consumes one transition and returns the alert actions it
// triggers. Transitions for the same endpoint must arrive in the order
// their probes completed; the engine serializes concurrent callers so an
// (endpointID, kind) episode can never be opened twice without an
// intervening close.
func (e *HysteresisEngine) Observe(t endpoint.Transition) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	var d Decision
	arena := e.arena(t.EndpointID)

	switch t.To {
	case vo.HealthStateOffline:
		if arena[KindOffline] == nil {
			ep := OpenEpisode(t.EndpointID, KindOffline, t.SuccessRate, t.At)
			arena[KindOffline] = ep
			d.Opened = append(d.Opened, ep)
			d.Events = append(d.Events, Event{
				Type:        EventServerOffline,
				EndpointID:  t.EndpointID,
				Kind:        KindOffline,
				SuccessRate: t.SuccessRate,
				LatencyMs:   t.LatencyMs,
				At:          t.At,
			})
		}

	case vo.HealthStateDegraded:
		if arena[KindDegraded] == nil {
			ep := OpenEpisode(t.EndpointID, KindDegraded, t.SuccessRate, t.At)
			arena[KindDegraded] = ep
			d.Opened = append(d.Opened, ep)
			d.Events = append(d.Events, Event{
				Type:        EventPerformanceDegraded,
				EndpointID:  t.EndpointID,
				Kind:        KindDegraded,
				SuccessRate: t.SuccessRate,
				LatencyMs:   t.LatencyMs,
				At:          t.At,
			})
		}

	case vo.HealthStateOnline:
		if ep := arena[KindOffline]; ep != nil {
			if err := ep.Close(t.At); err == nil {
				delete(arena, KindOffline)
				d.Closed = append(d.Closed, ep)
				d.Events = append(d.Events, Event{
					Type:        EventRecovered,
					EndpointID:  t.EndpointID,
					Kind:        KindOffline,
					SuccessRate: t.SuccessRate,
					LatencyMs:   t.LatencyMs,
					At:          t.At,
				})
			}
		}
		// Degraded recovery closes silently: the improvement already shows
		// in the status badge and must not re-open a closed episode.
		if ep := arena[KindDegraded]; ep != nil {
			if err := ep.Close(t.At); err == nil {
				delete(arena, KindDegraded)
				d.Closed = append(d.Closed, ep)
			}
		}
	}

	return d
}

// CloseAll closes every active episode for an endpoint without emitting
// events. Used on endpoint deactivation.
func (e *HysteresisEngine) CloseAll(endpointID uint, at time.Time) []*Episode {
	e.mu.Lock()
	defer e.mu.Unlock()

	var closed []*Episode
	for kind, ep := range e.episodes[endpointID] {
		if err := ep.Close(at); err == nil {
			closed = append(closed, ep)
		}
		delete(e.episodes[endpointID], kind)
	}
	delete(e.episodes, endpointID)
	return closed
}

// ActiveEpisode returns the active episode for the given key, or nil.
func (e *HysteresisEngine) ActiveEpisode(endpointID uint, kind Kind) *Episode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.episodes[endpointID][kind]
}

func (e *HysteresisEngine) arena(endpointID uint) map[Kind]*Episode {
	if e.episodes[endpointID] == nil {
		e.episodes[endpointID] = make(map[Kind]*Episode)
	}
	return e.episodes[endpointID]
}

package endpoint

import (
	"context"
	"time"

	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// Repository is the persistence port for endpoint aggregates.
type Repository interface {
	Create(ctx context.Context, ep *Endpoint) error
	GetByID(ctx context.Context, id uint) (*Endpoint, error)
	ListActive(ctx context.Context) ([]*Endpoint, error)
	List(ctx context.Context) ([]*Endpoint, error)
	Update(ctx context.Context, ep *Endpoint) error
}

// StatusSnapshot is the persisted view of one endpoint's status and timeout
// policy.
type StatusSnapshot struct {
	EndpointID    uint
	State         vo.HealthState
	SuccessRate   float64
	LastCheckedAt time.Time
	LastError     string
	Policy        vo.TimeoutPolicy
}

// StatusRepository persists endpoint status snapshots so status survives
// process restarts and is visible to other instances.
type StatusRepository interface {
	Upsert(ctx context.Context, snapshot *StatusSnapshot) error
	Get(ctx context.Context, endpointID uint) (*StatusSnapshot, error)
	ListAll(ctx context.Context) ([]*StatusSnapshot, error)
	Delete(ctx context.Context, endpointID uint) error
}

// ProbeRecordRepository appends and queries the probe history feed.
// Records are append-only, never mutated.
type ProbeRecordRepository interface {
	Append(ctx context.Context, record *ProbeRecord) error
	ListRecent(ctx context.Context, endpointID uint, limit int) ([]*ProbeRecord, error)
}

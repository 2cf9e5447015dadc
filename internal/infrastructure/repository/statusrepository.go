package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/errors"
	"hyperfleet/internal/shared/logger"
)

// StatusRepositoryImpl implements the endpoint.StatusRepository interface
type StatusRepositoryImpl struct {
	db      *gorm.DB
	floor   uint32
	ceiling uint32
	logger  logger.Interface
}

// NewStatusRepository creates a new status repository instance. The timeout
// bounds are needed to rebuild policies from persisted rows.
func NewStatusRepository(db *gorm.DB, floorMs, ceilingMs uint32, logger logger.Interface) endpoint.StatusRepository {
	return &StatusRepositoryImpl{
		db:      db,
		floor:   floorMs,
		ceiling: ceilingMs,
		logger:  logger,
	}
}

// Upsert writes the status snapshot for an endpoint, one row per endpoint
func (r *StatusRepositoryImpl) Upsert(ctx context.Context, snapshot *endpoint.StatusSnapshot) error {
	model := r.toModel(snapshot)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "endpoint_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"state", "success_rate", "last_checked_at", "last_error",
			"current_timeout_ms", "recommended_timeout_ms", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert endpoint status", "endpoint_id", snapshot.EndpointID, "error", err)
		return fmt.Errorf("failed to upsert endpoint status: %w", err)
	}

	return nil
}

// Get returns the status snapshot for one endpoint
func (r *StatusRepositoryImpl) Get(ctx context.Context, endpointID uint) (*endpoint.StatusSnapshot, error) {
	var model models.EndpointStatusModel

	if err := r.db.WithContext(ctx).Where("endpoint_id = ?", endpointID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("endpoint status not found")
		}
		return nil, fmt.Errorf("failed to get endpoint status: %w", err)
	}

	return r.toSnapshot(&model), nil
}

// ListAll returns snapshots for every endpoint that has one
func (r *StatusRepositoryImpl) ListAll(ctx context.Context) ([]*endpoint.StatusSnapshot, error) {
	var rows []models.EndpointStatusModel

	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list endpoint statuses: %w", err)
	}

	snapshots := make([]*endpoint.StatusSnapshot, 0, len(rows))
	for i := range rows {
		snapshots = append(snapshots, r.toSnapshot(&rows[i]))
	}
	return snapshots, nil
}

// Delete removes the status row for an endpoint
func (r *StatusRepositoryImpl) Delete(ctx context.Context, endpointID uint) error {
	if err := r.db.WithContext(ctx).Where("endpoint_id = ?", endpointID).
		Delete(&models.EndpointStatusModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete endpoint status: %w", err)
	}
	return nil
}

func (r *StatusRepositoryImpl) toModel(s *endpoint.StatusSnapshot) *models.EndpointStatusModel {
	model := &models.EndpointStatusModel{
		EndpointID:           s.EndpointID,
		State:                s.State.String(),
		SuccessRate:          s.SuccessRate,
		LastError:            s.LastError,
		CurrentTimeoutMs:     s.Policy.CurrentMs,
		RecommendedTimeoutMs: s.Policy.RecommendedMs,
		UpdatedAt:            biztime.NowUTC(),
	}
	if !s.LastCheckedAt.IsZero() {
		t := s.LastCheckedAt
		model.LastCheckedAt = &t
	}
	return model
}

func (r *StatusRepositoryImpl) toSnapshot(m *models.EndpointStatusModel) *endpoint.StatusSnapshot {
	state, err := vo.NewHealthState(m.State)
	if err != nil {
		state = vo.HealthStateUnknown
	}

	policy := vo.NewTimeoutPolicy(r.floor, r.ceiling)
	if m.CurrentTimeoutMs != 0 {
		policy.CurrentMs = m.CurrentTimeoutMs
	}
	if m.RecommendedTimeoutMs != 0 {
		policy.RecommendedMs = m.RecommendedTimeoutMs
	}

	var lastChecked time.Time
	if m.LastCheckedAt != nil {
		lastChecked = *m.LastCheckedAt
	}

	return &endpoint.StatusSnapshot{
		EndpointID:    m.EndpointID,
		State:         state,
		SuccessRate:   m.SuccessRate,
		LastCheckedAt: lastChecked,
		LastError:     m.LastError,
		Policy:        policy,
	}
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/logger"
)

// ProbeRecordRepositoryImpl implements the endpoint.ProbeRecordRepository interface
type ProbeRecordRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewProbeRecordRepository creates a new probe record repository instance
func NewProbeRecordRepository(db *gorm.DB, logger logger.Interface) endpoint.ProbeRecordRepository {
	return &ProbeRecordRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Append inserts one probe record. Records are append-only.
func (r *ProbeRecordRepositoryImpl) Append(ctx context.Context, record *endpoint.ProbeRecord) error {
	model := &models.ProbeRecordModel{
		EndpointID:     record.EndpointID,
		Success:        record.Success,
		ResponseTimeMs: record.ResponseTimeMs,
		ErrorMessage:   record.ErrorMessage,
		UsedTunnel:     record.UsedTunnel,
		TimeoutUsedMs:  record.TimeoutUsedMs,
		RetryCount:     record.RetryCount,
		Timestamp:      record.Timestamp,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to append probe record", "endpoint_id", record.EndpointID, "error", err)
		return fmt.Errorf("failed to append probe record: %w", err)
	}

	record.ID = model.ID
	return nil
}

// ListRecent returns the newest probe records for an endpoint
func (r *ProbeRecordRepositoryImpl) ListRecent(ctx context.Context, endpointID uint, limit int) ([]*endpoint.ProbeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []models.ProbeRecordModel
	if err := r.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list probe records: %w", err)
	}

	records := make([]*endpoint.ProbeRecord, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		records = append(records, &endpoint.ProbeRecord{
			ID:             m.ID,
			EndpointID:     m.EndpointID,
			Success:        m.Success,
			ResponseTimeMs: m.ResponseTimeMs,
			ErrorMessage:   m.ErrorMessage,
			UsedTunnel:     m.UsedTunnel,
			TimeoutUsedMs:  m.TimeoutUsedMs,
			RetryCount:     m.RetryCount,
			Timestamp:      m.Timestamp,
		})
	}
	return records, nil
}

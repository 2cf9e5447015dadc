package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/logger"
)

// EpisodeRepositoryImpl implements the alert.EpisodeRepository interface
type EpisodeRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewEpisodeRepository creates a new alert episode repository instance
func NewEpisodeRepository(db *gorm.DB, logger logger.Interface) alert.EpisodeRepository {
	return &EpisodeRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Create inserts a newly opened episode
func (r *EpisodeRepositoryImpl) Create(ctx context.Context, episode *alert.Episode) error {
	model := toEpisodeModel(episode)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create alert episode",
			"endpoint_id", episode.EndpointID,
			"kind", episode.Kind,
			"error", err,
		)
		return fmt.Errorf("failed to create alert episode: %w", err)
	}

	episode.ID = model.ID
	return nil
}

// Update persists episode state changes (closing)
func (r *EpisodeRepositoryImpl) Update(ctx context.Context, episode *alert.Episode) error {
	model := toEpisodeModel(episode)

	if err := r.db.WithContext(ctx).Model(&models.AlertEpisodeModel{}).
		Where("id = ?", episode.ID).
		Updates(map[string]interface{}{
			"active":    model.Active,
			"closed_at": model.ClosedAt,
		}).Error; err != nil {
		r.logger.Errorw("failed to update alert episode", "id", episode.ID, "error", err)
		return fmt.Errorf("failed to update alert episode: %w", err)
	}

	return nil
}

// ListActive returns every active episode across the fleet
func (r *EpisodeRepositoryImpl) ListActive(ctx context.Context) ([]*alert.Episode, error) {
	var rows []models.AlertEpisodeModel

	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active episodes: %w", err)
	}

	return toEpisodeEntities(rows), nil
}

// ListByEndpoint returns the newest episodes for one endpoint
func (r *EpisodeRepositoryImpl) ListByEndpoint(ctx context.Context, endpointID uint, limit int) ([]*alert.Episode, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.AlertEpisodeModel
	if err := r.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Order("opened_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	return toEpisodeEntities(rows), nil
}

func toEpisodeModel(e *alert.Episode) *models.AlertEpisodeModel {
	return &models.AlertEpisodeModel{
		ID:                 e.ID,
		EndpointID:         e.EndpointID,
		Kind:               string(e.Kind),
		Active:             e.Active,
		OpenedAt:           e.OpenedAt,
		ClosedAt:           e.ClosedAt,
		ThresholdAtTrigger: e.ThresholdAtTrigger,
	}
}

func toEpisodeEntities(rows []models.AlertEpisodeModel) []*alert.Episode {
	episodes := make([]*alert.Episode, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		kind, err := alert.NewKind(m.Kind)
		if err != nil {
			continue
		}
		episodes = append(episodes, &alert.Episode{
			ID:                 m.ID,
			EndpointID:         m.EndpointID,
			Kind:               kind,
			Active:             m.Active,
			OpenedAt:           m.OpenedAt,
			ClosedAt:           m.ClosedAt,
			ThresholdAtTrigger: m.ThresholdAtTrigger,
		})
	}
	return episodes
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/errors"
	"hyperfleet/internal/shared/logger"
)

// EndpointRepositoryImpl implements the endpoint.Repository interface
type EndpointRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewEndpointRepository creates a new endpoint repository instance
func NewEndpointRepository(db *gorm.DB, logger logger.Interface) endpoint.Repository {
	return &EndpointRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Create creates a new endpoint in the database
func (r *EndpointRepositoryImpl) Create(ctx context.Context, ep *endpoint.Endpoint) error {
	model := toEndpointModel(ep)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.IsDuplicateKey(err) {
			return errors.NewConflictError("endpoint with this name already exists")
		}
		r.logger.Errorw("failed to create endpoint", "error", err)
		return fmt.Errorf("failed to create endpoint: %w", err)
	}

	if err := ep.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set endpoint ID: %w", err)
	}

	r.logger.Infow("endpoint created", "id", model.ID, "name", model.Name)
	return nil
}

// GetByID retrieves an endpoint by its ID
func (r *EndpointRepositoryImpl) GetByID(ctx context.Context, id uint) (*endpoint.Endpoint, error) {
	var model models.EndpointModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("endpoint not found")
		}
		r.logger.Errorw("failed to get endpoint by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get endpoint: %w", err)
	}

	return toEndpointEntity(&model), nil
}

// ListActive returns all endpoints included in monitoring
func (r *EndpointRepositoryImpl) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	var rows []models.EndpointModel

	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list active endpoints", "error", err)
		return nil, fmt.Errorf("failed to list active endpoints: %w", err)
	}

	endpoints := make([]*endpoint.Endpoint, 0, len(rows))
	for i := range rows {
		endpoints = append(endpoints, toEndpointEntity(&rows[i]))
	}
	return endpoints, nil
}

// List returns all endpoints
func (r *EndpointRepositoryImpl) List(ctx context.Context) ([]*endpoint.Endpoint, error) {
	var rows []models.EndpointModel

	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list endpoints", "error", err)
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}

	endpoints := make([]*endpoint.Endpoint, 0, len(rows))
	for i := range rows {
		endpoints = append(endpoints, toEndpointEntity(&rows[i]))
	}
	return endpoints, nil
}

// Update persists changes to an endpoint
func (r *EndpointRepositoryImpl) Update(ctx context.Context, ep *endpoint.Endpoint) error {
	model := toEndpointModel(ep)
	model.ID = ep.ID()

	result := r.db.WithContext(ctx).Model(&models.EndpointModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":           model.Name,
			"host":           model.Host,
			"port":           model.Port,
			"tunnel_host":    model.TunnelHost,
			"tunnel_port":    model.TunnelPort,
			"credential_ref": model.CredentialRef,
			"verify_tls":     model.VerifyTLS,
			"active":         model.Active,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update endpoint", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update endpoint: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("endpoint not found")
	}

	return nil
}

func toEndpointModel(ep *endpoint.Endpoint) *models.EndpointModel {
	return &models.EndpointModel{
		ID:            ep.ID(),
		Name:          ep.Name(),
		Host:          ep.Host(),
		Port:          ep.Port(),
		TunnelHost:    ep.TunnelHost(),
		TunnelPort:    ep.TunnelPort(),
		CredentialRef: ep.CredentialRef(),
		VerifyTLS:     ep.VerifyTLS(),
		Active:        ep.IsActive(),
		CreatedAt:     ep.CreatedAt(),
		UpdatedAt:     ep.UpdatedAt(),
	}
}

func toEndpointEntity(m *models.EndpointModel) *endpoint.Endpoint {
	return endpoint.ReconstructEndpoint(
		m.ID,
		m.Name,
		m.Host,
		m.Port,
		m.TunnelHost,
		m.TunnelPort,
		m.CredentialRef,
		m.VerifyTLS,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

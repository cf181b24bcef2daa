package persistence

import (
	"context"
	"errors"

	"github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIntegrationRepository implements integration.Repository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// Save inserts or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	model := models.IntegrationModelFromDomain(integ)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant returns all integrations belonging to a tenant
func (r *GormIntegrationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	integrations := make([]integration.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, nil
}

// FindByTenantAndType finds a tenant's integration of a given type
func (r *GormIntegrationRepository) FindByTenantAndType(ctx context.Context, tenantID uuid.UUID, t integration.Type) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND type = ?", tenantID, t).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Delete removes an integration row. Deleting an absent row is a no-op.
func (r *GormIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.IntegrationModel{}, "id = ?", id).Error
}

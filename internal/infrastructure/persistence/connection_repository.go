package persistence

import (
	"context"
	"errors"

	"github.com/crm/gateway/internal/domain/connection"
	"github.com/crm/gateway/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormConnectionRepository implements connection.Repository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// Upsert inserts the connection or replaces the user's existing one.
// The conflict target is the unique user_id index, so two concurrent
// connects from the same user collapse into one row instead of racing a
// delete/insert pair.
func (r *GormConnectionRepository) Upsert(ctx context.Context, conn *connection.LLMConnection) error {
	model := models.LLMConnectionModelFromDomain(conn)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company_id", "provider", "model", "api_key_vault_id",
				"base_url", "is_active", "updated_at",
			}),
		}).
		Create(model).Error
}

// FindByUserID finds the user's connection
func (r *GormConnectionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*connection.LLMConnection, error) {
	var model models.LLMConnectionModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connection.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// DeleteByUserID removes the user's connection. Absent rows are a no-op.
func (r *GormConnectionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.LLMConnectionModel{}, "user_id = ?", userID).Error
}

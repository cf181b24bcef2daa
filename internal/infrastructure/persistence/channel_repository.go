package persistence

import (
	"context"
	"errors"

	"github.com/crm/gateway/internal/domain/channel"
	"github.com/crm/gateway/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChannelRepository implements channel.Repository using GORM
type GormChannelRepository struct {
	db *gorm.DB
}

// NewGormChannelRepository creates a new GormChannelRepository
func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// Save inserts or updates a channel connection
func (r *GormChannelRepository) Save(ctx context.Context, conn *channel.ChannelConnection) error {
	model := models.ChannelConnectionModelFromDomain(conn)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindVerifiedByChatID finds the active verified connection bound to a chat
func (r *GormChannelRepository) FindVerifiedByChatID(ctx context.Context, chatID int64) (*channel.ChannelConnection, error) {
	var model models.ChannelConnectionModel
	if err := r.db.WithContext(ctx).
		Where("telegram_chat_id = ? AND is_verified = ? AND is_active = ?", chatID, true, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByCode finds an unverified connection by its single-use code.
// Codes are stored normalized, so the lookup is a plain equality match.
func (r *GormChannelRepository) FindPendingByCode(ctx context.Context, normalizedCode string) (*channel.ChannelConnection, error) {
	if normalizedCode == "" {
		return nil, channel.ErrNotFound
	}
	var model models.ChannelConnectionModel
	if err := r.db.WithContext(ctx).
		Where("verification_code = ? AND is_verified = ? AND is_active = ?", normalizedCode, false, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

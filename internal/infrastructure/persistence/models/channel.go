package models

import (
	"github.com/crm/gateway/internal/domain/channel"
	"github.com/google/uuid"
)

// ChannelConnectionModel is the persistence model for Telegram channel
// connections. Verification codes are stored normalized (lower case) so
// the pending-code lookup is a plain equality match.
type ChannelConnectionModel struct {
	BaseModel
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID        uuid.UUID `gorm:"type:uuid;not null;index"`
	TelegramChatID   *int64    `gorm:"index:idx_channel_connections_chat"`
	VerificationCode *string   `gorm:"type:varchar(32);index:idx_channel_connections_code"`
	IsVerified       bool      `gorm:"not null;default:false"`
	IsActive         bool      `gorm:"not null;default:true"`
	BotTokenVaultID  string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ChannelConnectionModel) TableName() string {
	return "channel_connections"
}

// ToDomain converts the persistence model to a domain ChannelConnection entity.
func (m *ChannelConnectionModel) ToDomain() *channel.ChannelConnection {
	return &channel.ChannelConnection{
		BaseEntity:       m.BaseModel.ToDomain(),
		UserID:           m.UserID,
		CompanyID:        m.CompanyID,
		TelegramChatID:   m.TelegramChatID,
		VerificationCode: m.VerificationCode,
		IsVerified:       m.IsVerified,
		IsActive:         m.IsActive,
		BotTokenVaultID:  m.BotTokenVaultID,
	}
}

// FromDomain populates the persistence model from a domain entity.
func (m *ChannelConnectionModel) FromDomain(c *channel.ChannelConnection) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.UserID = c.UserID
	m.CompanyID = c.CompanyID
	m.TelegramChatID = c.TelegramChatID
	if c.VerificationCode != nil {
		normalized := channel.NormalizeCode(*c.VerificationCode)
		m.VerificationCode = &normalized
	} else {
		m.VerificationCode = nil
	}
	m.IsVerified = c.IsVerified
	m.IsActive = c.IsActive
	m.BotTokenVaultID = c.BotTokenVaultID
}

// ChannelConnectionModelFromDomain creates a new persistence model from a domain entity.
func ChannelConnectionModelFromDomain(c *channel.ChannelConnection) *ChannelConnectionModel {
	m := &ChannelConnectionModel{}
	m.FromDomain(c)
	return m
}

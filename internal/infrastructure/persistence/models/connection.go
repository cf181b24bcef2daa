package models

import (
	"github.com/crm/gateway/internal/domain/connection"
	"github.com/crm/gateway/internal/domain/probe"
	"github.com/google/uuid"
)

// LLMConnectionModel is the persistence model for the per-user LLM
// connection. The unique index on user_id backs the singleton rule.
type LLMConnectionModel struct {
	BaseModel
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_llm_connections_user"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider      string    `gorm:"type:varchar(30);not null"`
	Model         string    `gorm:"type:varchar(100);not null"`
	APIKeyVaultID *string   `gorm:"type:varchar(100)"`
	BaseURL       *string   `gorm:"type:varchar(500)"`
	IsActive      bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LLMConnectionModel) TableName() string {
	return "llm_connections"
}

// ToDomain converts the persistence model to a domain LLMConnection entity.
func (m *LLMConnectionModel) ToDomain() *connection.LLMConnection {
	return &connection.LLMConnection{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		CompanyID:     m.CompanyID,
		Provider:      probe.Provider(m.Provider),
		Model:         m.Model,
		APIKeyVaultID: m.APIKeyVaultID,
		BaseURL:       m.BaseURL,
		IsActive:      m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain entity.
func (m *LLMConnectionModel) FromDomain(c *connection.LLMConnection) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.UserID = c.UserID
	m.CompanyID = c.CompanyID
	m.Provider = c.Provider.String()
	m.Model = c.Model
	m.APIKeyVaultID = c.APIKeyVaultID
	m.BaseURL = c.BaseURL
	m.IsActive = c.IsActive
}

// LLMConnectionModelFromDomain creates a new persistence model from a domain entity.
func LLMConnectionModelFromDomain(c *connection.LLMConnection) *LLMConnectionModel {
	m := &LLMConnectionModel{}
	m.FromDomain(c)
	return m
}

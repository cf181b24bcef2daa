package models

import (
	"time"

	"github.com/crm/gateway/internal/domain/integration"
	"github.com/google/uuid"
)

// IntegrationModel is the persistence model for the Integration domain entity.
// The secret value itself never lands here, only the opaque vault reference.
type IntegrationModel struct {
	BaseModel
	TenantID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_integrations_tenant,priority:1;index:idx_integrations_tenant_type,unique,priority:1"`
	Type           integration.Type `gorm:"type:varchar(30);not null;index:idx_integrations_tenant_type,unique,priority:2"`
	EndpointURL    string           `gorm:"type:varchar(500);not null"`
	VaultSecretID  string           `gorm:"type:varchar(100);not null"`
	IsActive       bool             `gorm:"not null;default:true"`
	LastVerifiedAt *time.Time
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	return &integration.Integration{
		BaseEntity:     m.BaseModel.ToDomain(),
		TenantID:       m.TenantID,
		Type:           m.Type,
		EndpointURL:    m.EndpointURL,
		VaultSecretID:  m.VaultSecretID,
		IsActive:       m.IsActive,
		LastVerifiedAt: m.LastVerifiedAt,
	}
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *integration.Integration) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.TenantID = i.TenantID
	m.Type = i.Type
	m.EndpointURL = i.EndpointURL
	m.VaultSecretID = i.VaultSecretID
	m.IsActive = i.IsActive
	m.LastVerifiedAt = i.LastVerifiedAt
}

// IntegrationModelFromDomain creates a new persistence model from a domain entity.
func IntegrationModelFromDomain(i *integration.Integration) *IntegrationModel {
	m := &IntegrationModel{}
	m.FromDomain(i)
	return m
}

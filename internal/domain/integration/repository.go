package integration

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for integrations
type Repository interface {
	// Save inserts or updates an integration
	Save(ctx context.Context, integration *Integration) error

	// FindByID finds an integration by its ID, returning ErrNotFound if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindByTenant returns all integrations belonging to a tenant
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]Integration, error)

	// FindByTenantAndType finds a tenant's integration of a given type,
	// returning ErrNotFound if absent
	FindByTenantAndType(ctx context.Context, tenantID uuid.UUID, t Type) (*Integration, error)

	// Delete removes an integration row. Deleting an absent row is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

package integration

import (
	"context"
	"errors"
)

var (
	// ErrSecretNotFound indicates a read for a secret that does not exist
	ErrSecretNotFound = errors.New("integration: vault secret not found")
	// ErrSecretExists indicates a create collided with an existing name;
	// callers must pre-delete before retrying
	ErrSecretExists = errors.New("integration: vault secret name already exists")
	// ErrVaultUnavailable indicates the secret store itself failed
	ErrVaultUnavailable = errors.New("integration: vault unavailable")
)

// SecretStore is the port over the encrypted key-value secret store.
// It carries no business logic; every caller orchestrates create/delete
// around its own persistence step. Deletes are idempotent: removing an
// absent secret is a successful no-op.
type SecretStore interface {
	// Create stores a secret under a deterministic name and returns its
	// opaque ID. Fails with ErrSecretExists on name collision.
	Create(ctx context.Context, name, value string) (string, error)

	// Read returns the secret value for an ID, or ErrSecretNotFound
	Read(ctx context.Context, id string) (string, error)

	// Delete removes a secret by ID. Absent secrets are a no-op.
	Delete(ctx context.Context, id string) error

	// DeleteByName removes a secret by its deterministic name.
	// Absent secrets are a no-op.
	DeleteByName(ctx context.Context, name string) error
}

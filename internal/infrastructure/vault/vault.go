package vault

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/crm/gateway/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Config holds connection settings for the Vault KV v2 secret store
type Config struct {
	// Address is the Vault server address, e.g. https://vault.internal:8200
	Address string
	// Token authenticates the gateway against Vault
	Token string
	// MountPath is the KV v2 mount, e.g. "secret"
	MountPath string
	// BasePath scopes all gateway secrets within the mount, e.g. "gateway"
	BasePath string
	// Timeout bounds each Vault HTTP call
	Timeout time.Duration
}

// Store implements the integration.SecretStore port on HashiCorp Vault
// KV v2. Secrets live under {mount}/data/{base}/secrets/{id}; a name index
// under {mount}/data/{base}/names/{name} makes deterministic names
// addressable without listing.
type Store struct {
	client    *api.Client
	mountPath string
	basePath  string
	logger    *zap.Logger
}

// NewStore creates a Vault-backed secret store
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Address
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	apiCfg.HttpClient = &http.Client{Timeout: timeout}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		client:    client,
		mountPath: strings.Trim(cfg.MountPath, "/"),
		basePath:  strings.Trim(cfg.BasePath, "/"),
		logger:    logger,
	}, nil
}

// secretPath returns the KV v2 data path for a secret ID
func (s *Store) secretPath(id string) string {
	return fmt.Sprintf("%s/data/%s/secrets/%s", s.mountPath, s.basePath, id)
}

// namePath returns the KV v2 data path for a name index entry
func (s *Store) namePath(name string) string {
	return fmt.Sprintf("%s/data/%s/names/%s", s.mountPath, s.basePath, name)
}

// metadataPath converts a data path to its metadata path, used for
// permanent deletion of all versions
func metadataPath(dataPath string) string {
	return strings.Replace(dataPath, "/data/", "/metadata/", 1)
}

// Create stores a secret under a deterministic name and returns its opaque
// ID. A live name index entry means a collision; callers pre-delete stale
// names before retrying.
func (s *Store) Create(ctx context.Context, name, value string) (string, error) {
	if _, found, err := s.readField(ctx, s.namePath(name), "secret_id"); err != nil {
		return "", err
	} else if found {
		return "", integration.ErrSecretExists
	}

	id := uuid.NewString()
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"value": value,
			"name":  name,
		},
	}
	if _, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(id), secretData); err != nil {
		s.logger.Error("failed to write secret", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("%w: %v", integration.ErrVaultUnavailable, err)
	}

	indexData := map[string]interface{}{
		"data": map[string]interface{}{
			"secret_id": id,
		},
	}
	if _, err := s.client.Logical().WriteWithContext(ctx, s.namePath(name), indexData); err != nil {
		// Roll the secret back so a half-written pair never survives
		if delErr := s.Delete(ctx, id); delErr != nil {
			s.logger.Warn("failed to clean up secret after index write failure",
				zap.String("secret_id", id), zap.Error(delErr))
		}
		s.logger.Error("failed to write name index", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("%w: %v", integration.ErrVaultUnavailable, err)
	}

	s.logger.Debug("secret created", zap.String("name", name), zap.String("secret_id", id))
	return id, nil
}

// Read returns the secret value for an ID
func (s *Store) Read(ctx context.Context, id string) (string, error) {
	value, found, err := s.readField(ctx, s.secretPath(id), "value")
	if err != nil {
		return "", err
	}
	if !found {
		return "", integration.ErrSecretNotFound
	}
	return value, nil
}

// Delete removes a secret by ID along with its name index entry.
// Absent secrets are a successful no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	name, found, err := s.readField(ctx, s.secretPath(id), "name")
	if err != nil {
		return err
	}
	if found && name != "" {
		if err := s.deletePath(ctx, s.namePath(name)); err != nil {
			return err
		}
	}
	return s.deletePath(ctx, s.secretPath(id))
}

// DeleteByName removes a secret by its deterministic name.
// Absent names are a successful no-op.
func (s *Store) DeleteByName(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	id, found, err := s.readField(ctx, s.namePath(name), "secret_id")
	if err != nil {
		return err
	}
	if found && id != "" {
		if err := s.deletePath(ctx, s.secretPath(id)); err != nil {
			return err
		}
	}
	return s.deletePath(ctx, s.namePath(name))
}

// readField reads a single string field from a KV v2 data path.
// found is false when the path or field does not exist.
func (s *Store) readField(ctx context.Context, path, field string) (string, bool, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.logger.Error("failed to read from vault", zap.String("path", path), zap.Error(err))
		return "", false, fmt.Errorf("%w: %v", integration.ErrVaultUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return "", false, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", false, nil
	}
	value, ok := data[field].(string)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

// deletePath permanently removes all versions at a KV v2 path.
// Vault treats deletion of an absent path as success, matching the
// idempotent delete contract.
func (s *Store) deletePath(ctx context.Context, dataPath string) error {
	if _, err := s.client.Logical().DeleteWithContext(ctx, metadataPath(dataPath)); err != nil {
		s.logger.Error("failed to delete from vault", zap.String("path", dataPath), zap.Error(err))
		return fmt.Errorf("%w: %v", integration.ErrVaultUnavailable, err)
	}
	return nil
}

// Healthy reports whether Vault is initialized and unsealed
func (s *Store) Healthy(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.logger.Debug("vault health check failed", zap.Error(err))
		return false
	}
	return health.Initialized && !health.Sealed
}

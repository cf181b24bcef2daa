package integration

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/crm/gateway/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound          = errors.New("integration: not found")
	ErrAlreadyExists     = errors.New("integration: tenant already has an integration of this type")
	ErrInvalidTenantID   = errors.New("integration: invalid tenant ID")
	ErrInvalidType       = errors.New("integration: invalid integration type")
	ErrInvalidEndpoint   = errors.New("integration: invalid endpoint URL")
	ErrMissingCredential = errors.New("integration: credential is required")
)

// ---------------------------------------------------------------------------
// Type represents the kind of external service an integration connects to
// ---------------------------------------------------------------------------

// Type represents the kind of external service an integration connects to
type Type string

const (
	// TypeWorkflowEngine represents a self-hosted n8n workflow engine
	TypeWorkflowEngine Type = "workflow_engine"
	// TypeTelegram represents the Telegram bot platform
	TypeTelegram Type = "telegram"
	// TypeWebhook represents a generic outbound webhook target
	TypeWebhook Type = "webhook"
)

// IsValid returns true if the integration type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowEngine, TypeTelegram, TypeWebhook:
		return true
	default:
		return false
	}
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// workflow-engine API path tails stripped during endpoint normalization
var workflowAPISuffixes = []string{"/api/v1", "/api", "/rest"}

// NormalizeEndpoint canonicalizes a caller-supplied endpoint URL.
// Trailing slashes are always stripped; workflow-engine endpoints
// additionally lose known API-path tails so the stored URL is always the
// instance root.
func NormalizeEndpoint(t Type, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		// Telegram talks to a fixed API host; no endpoint is stored.
		if t == TypeTelegram {
			return "", nil
		}
		return "", ErrInvalidEndpoint
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidEndpoint
	}
	normalized := strings.TrimRight(trimmed, "/")
	if t == TypeWorkflowEngine {
		for _, suffix := range workflowAPISuffixes {
			if strings.HasSuffix(normalized, suffix) {
				normalized = strings.TrimSuffix(normalized, suffix)
				break
			}
		}
		normalized = strings.TrimRight(normalized, "/")
	}
	return normalized, nil
}

// ---------------------------------------------------------------------------
// Integration entity
// ---------------------------------------------------------------------------

// Integration is a named per-tenant connection to an external service.
// It never holds the credential itself, only a weak reference into the vault.
type Integration struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	Type           Type
	EndpointURL    string
	VaultSecretID  string
	IsActive       bool
	LastVerifiedAt *time.Time
}

// NewIntegration creates an integration with a normalized endpoint.
// The vault secret reference is attached later, once the secret exists.
func NewIntegration(tenantID uuid.UUID, t Type, endpointURL string) (*Integration, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !t.IsValid() {
		return nil, ErrInvalidType
	}
	normalized, err := NormalizeEndpoint(t, endpointURL)
	if err != nil {
		return nil, err
	}
	return &Integration{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		Type:        t,
		EndpointURL: normalized,
		IsActive:    true,
	}, nil
}

// SecretName returns the deterministic vault secret name for this
// integration. The name is stable across creation retries so stale secrets
// from a previously crashed attempt can be pre-cleaned.
func (i *Integration) SecretName() string {
	return SecretName(i.TenantID, i.Type)
}

// SecretName builds the deterministic vault secret name for a tenant and
// integration type pair.
func SecretName(tenantID uuid.UUID, t Type) string {
	return fmt.Sprintf("%s_%s_api_key", tenantID, t)
}

// MarkVerified stamps the integration after a successful connectivity test
func (i *Integration) MarkVerified(at time.Time) {
	i.LastVerifiedAt = &at
	i.Touch()
}

// Activate enables the integration
func (i *Integration) Activate() {
	i.IsActive = true
	i.Touch()
}

// Deactivate disables the integration without touching its secret
func (i *Integration) Deactivate() {
	i.IsActive = false
	i.Touch()
}

package connection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crm/gateway/internal/domain/probe"
	"github.com/crm/gateway/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound          = errors.New("connection: not found")
	ErrInvalidUserID     = errors.New("connection: invalid user ID")
	ErrInvalidProvider   = errors.New("connection: unknown LLM provider")
	ErrInvalidModel      = errors.New("connection: model is required")
	ErrMissingCredential = errors.New("connection: credential required for cloud provider")
	ErrMissingBaseURL    = errors.New("connection: base URL required for local provider")
)

// ---------------------------------------------------------------------------
// LLMConnection entity
// ---------------------------------------------------------------------------

// LLMConnection is the per-user singleton binding to an AI model provider.
// Cloud providers reference an API key in the vault; local providers store
// only a reachable base URL and never a secret.
type LLMConnection struct {
	shared.BaseEntity
	UserID        uuid.UUID
	CompanyID     uuid.UUID
	Provider      probe.Provider
	Model         string
	APIKeyVaultID *string
	BaseURL       *string
	IsActive      bool
}

// NewLLMConnection validates provider-specific requirements and builds a
// connection. The vault reference is attached by the caller once the secret
// exists; nothing is persisted before the provider probe passed.
func NewLLMConnection(userID, companyID uuid.UUID, provider probe.Provider, model, baseURL string) (*LLMConnection, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if !provider.IsValid() || !provider.IsLLM() {
		return nil, ErrInvalidProvider
	}
	if strings.TrimSpace(model) == "" {
		return nil, ErrInvalidModel
	}
	conn := &LLMConnection{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		CompanyID:  companyID,
		Provider:   provider,
		Model:      strings.TrimSpace(model),
		IsActive:   true,
	}
	if provider.IsLocal() {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed == "" {
			return nil, ErrMissingBaseURL
		}
		if err := probe.RejectLoopback(trimmed); err != nil {
			return nil, err
		}
		conn.BaseURL = &trimmed
	}
	return conn, nil
}

// SecretName returns the deterministic vault secret name for a user's LLM
// credential. One name per user matches the singleton connection rule.
func SecretName(userID uuid.UUID) string {
	return fmt.Sprintf("user_%s_llm_api_key", userID)
}

// RequiresCredential returns true when the connection's provider needs an
// API key stored in the vault
func (c *LLMConnection) RequiresCredential() bool {
	return !c.Provider.IsLocal()
}

// AttachSecret records the vault reference for a cloud credential
func (c *LLMConnection) AttachSecret(vaultID string) {
	c.APIKeyVaultID = &vaultID
	c.Touch()
}

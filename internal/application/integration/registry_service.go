package integration

import (
	"context"
	"strings"
	"time"

	"github.com/crm/gateway/internal/domain/integration"
	"github.com/crm/gateway/internal/domain/probe"
	"github.com/crm/gateway/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowSyncer triggers a best-effort downstream workflow pull after a
// successful connectivity test. Failures are logged, never escalated.
type WorkflowSyncer interface {
	PullWorkflows(ctx context.Context, endpointURL, apiKey string) error
}

// RegistryService owns the integration lifecycle: create with the
// secret-then-row compensating sequence, probe-backed testing and
// idempotent deletion. Every entry point enforces the tenant-admin rule.
type RegistryService struct {
	integrations integration.Repository
	secrets      integration.SecretStore
	prober       probe.Prober
	syncer       WorkflowSyncer
	logger       *zap.Logger
}

// NewRegistryService creates a RegistryService
func NewRegistryService(
	integrations integration.Repository,
	secrets integration.SecretStore,
	prober probe.Prober,
	syncer WorkflowSyncer,
	logger *zap.Logger,
) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		integrations: integrations,
		secrets:      secrets,
		prober:       prober,
		syncer:       syncer,
		logger:       logger,
	}
}

// CreateInput carries the fields for a new integration
type CreateInput struct {
	TenantID    uuid.UUID
	Type        integration.Type
	EndpointURL string
	Secret      string
}

// TestResult reports the outcome of a connectivity test
type TestResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"response_time_ms"`
}

// Create validates input, pre-cleans any stale secret under the
// deterministic name, stores the new secret and inserts the row. If the
// insert fails the just-created secret is deleted again: no creation
// attempt may leave a secret with no owning row.
func (s *RegistryService) Create(ctx context.Context, actor shared.Actor, input CreateInput) (*integration.Integration, error) {
	if err := shared.AuthorizeTenantAdmin(actor, input.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Secret) == "" {
		return nil, integration.ErrMissingCredential
	}

	integ, err := integration.NewIntegration(input.TenantID, input.Type, input.EndpointURL)
	if err != nil {
		return nil, err
	}

	// Surface the tenant+type unique index as a domain error before any
	// secret is written.
	if _, err := s.integrations.FindByTenantAndType(ctx, input.TenantID, input.Type); err == nil {
		return nil, integration.ErrAlreadyExists
	} else if err != integration.ErrNotFound {
		return nil, err
	}

	// A previous attempt may have crashed between secret creation and row
	// insert; the deterministic name lets us reclaim it here.
	secretName := integ.SecretName()
	if err := s.secrets.DeleteByName(ctx, secretName); err != nil {
		return nil, err
	}

	secretID, err := s.secrets.Create(ctx, secretName, input.Secret)
	if err != nil {
		return nil, err
	}
	integ.VaultSecretID = secretID

	if err := s.integrations.Save(ctx, integ); err != nil {
		if cleanupErr := s.secrets.Delete(ctx, secretID); cleanupErr != nil {
			s.logger.Warn("failed to clean up secret after insert failure",
				zap.String("secret_id", secretID),
				zap.Error(cleanupErr))
		}
		return nil, err
	}

	s.logger.Info("integration created",
		zap.String("integration_id", integ.ID.String()),
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("type", input.Type.String()))
	return integ, nil
}

// Test reads the integration's secret and runs the matching provider
// probe. On success the verification timestamp is stamped and a
// best-effort workflow pull is fired; its failure never fails the test.
func (s *RegistryService) Test(ctx context.Context, actor shared.Actor, id uuid.UUID) (*TestResult, error) {
	integ, err := s.authorizedFind(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	secret, err := s.secrets.Read(ctx, integ.VaultSecretID)
	if err != nil {
		return nil, err
	}

	result, err := s.prober.Probe(ctx, probeRequestFor(integ, secret))
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return &TestResult{Success: false, Error: result.Error, Latency: result.Latency}, nil
	}

	integ.MarkVerified(time.Now())
	if err := s.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}

	if integ.Type == integration.TypeWorkflowEngine && s.syncer != nil {
		if err := s.syncer.PullWorkflows(ctx, integ.EndpointURL, secret); err != nil {
			s.logger.Warn("downstream workflow pull failed",
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err))
		}
	}

	return &TestResult{Success: true, Latency: result.Latency}, nil
}

// probeRequestFor maps an integration type onto its probe request
func probeRequestFor(integ *integration.Integration, secret string) probe.Request {
	switch integ.Type {
	case integration.TypeTelegram:
		return probe.Request{Provider: probe.ProviderTelegram, Credential: secret}
	default:
		return probe.Request{
			Provider:   probe.ProviderN8N,
			Credential: secret,
			BaseURL:    integ.EndpointURL,
		}
	}
}

// Delete removes the row first, then the secret by ID, then defensively by
// deterministic name. Every step is idempotent: repeated or partial
// deletions never surface as errors distinct from success.
func (s *RegistryService) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	integ, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		if err == integration.ErrNotFound {
			if !actor.IsAdmin() {
				return shared.ErrForbidden
			}
			return nil
		}
		return err
	}
	if err := shared.AuthorizeTenantAdmin(actor, integ.TenantID); err != nil {
		return err
	}

	if err := s.integrations.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, integ.VaultSecretID); err != nil {
		s.logger.Warn("failed to delete integration secret by id",
			zap.String("integration_id", id.String()),
			zap.Error(err))
	}
	if err := s.secrets.DeleteByName(ctx, integ.SecretName()); err != nil {
		s.logger.Warn("failed to delete integration secret by name",
			zap.String("integration_id", id.String()),
			zap.Error(err))
	}

	s.logger.Info("integration deleted", zap.String("integration_id", id.String()))
	return nil
}

// List returns the tenant's integrations. Secret values never leave this
// component; callers only see vault references.
func (s *RegistryService) List(ctx context.Context, actor shared.Actor, tenantID uuid.UUID) ([]integration.Integration, error) {
	if err := shared.AuthorizeTenantAdmin(actor, tenantID); err != nil {
		return nil, err
	}
	return s.integrations.FindByTenant(ctx, tenantID)
}

// Get returns a single integration after a tenant check
func (s *RegistryService) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*integration.Integration, error) {
	return s.authorizedFind(ctx, actor, id)
}

// SetActive toggles the integration without touching its secret
func (s *RegistryService) SetActive(ctx context.Context, actor shared.Actor, id uuid.UUID, active bool) (*integration.Integration, error) {
	integ, err := s.authorizedFind(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if active {
		integ.Activate()
	} else {
		integ.Deactivate()
	}
	if err := s.integrations.Save(ctx, integ); err != nil {
		return nil, err
	}
	return integ, nil
}

// authorizedFind loads an integration and enforces the tenant-admin rule
// against its owning tenant
func (s *RegistryService) authorizedFind(ctx context.Context, actor shared.Actor, id uuid.UUID) (*integration.Integration, error) {
	integ, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := shared.AuthorizeTenantAdmin(actor, integ.TenantID); err != nil {
		return nil, err
	}
	return integ, nil
}
